package relay

// UserClaims is the normalized subset of provider claims a session carries.
// Every field defaults to the empty string; a session never holds absent
// values.
type UserClaims struct {
	Sub        string `json:"sub"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	BirthDate  string `json:"birth_date"`
	Email      string `json:"email"`
}

// NormalizeClaims merges userinfo claims over ID token claims and maps the
// provider's birth date variants onto a single field. Userinfo values win
// on conflict. France Connect has delivered the birth date as `birth`,
// `birthdate` and `birth_date` depending on API version; the first
// non-empty value wins in that order.
func NormalizeClaims(idClaims, userinfo map[string]interface{}) UserClaims {
	merged := make(map[string]interface{}, len(idClaims)+len(userinfo))
	for k, v := range idClaims {
		merged[k] = v
	}
	for k, v := range userinfo {
		merged[k] = v
	}

	return UserClaims{
		Sub:        stringClaim(merged, "sub"),
		GivenName:  stringClaim(merged, "given_name"),
		FamilyName: stringClaim(merged, "family_name"),
		BirthDate: firstNonEmpty(
			stringClaim(merged, "birth"),
			stringClaim(merged, "birthdate"),
			stringClaim(merged, "birth_date"),
		),
		Email: stringClaim(merged, "email"),
	}
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
