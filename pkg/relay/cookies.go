package relay

import (
	"net/http"
	"time"
)

// Cookie names follow the original France Connect integration.
const (
	StateCookieName    = "fc_state"
	NonceCookieName    = "fc_nonce"
	VerifierCookieName = "fc_code_verifier"
	SessionCookieName  = "fc_session"
)

// TransientTTL bounds the window between login initiation and callback.
const TransientTTL = 10 * time.Minute

// newCookie builds a relay cookie: HttpOnly, SameSite=Lax (the callback is
// a top-level navigation from the provider, Strict would drop the cookies),
// Secure in production.
func newCookie(name, value string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
	}
}

func clearCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	}
}
