package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// SessionTTL is the fixed lifetime of an issued session.
const SessionTTL = time.Hour

// SessionCodec signs and verifies the stateless session token held by the
// browser. The payload is `{user: {...}, exp}`; there is no server-side
// session record.
type SessionCodec struct {
	secret []byte
}

func NewSessionCodec(secret string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret)}
}

func (c *SessionCodec) Encode(user UserClaims) (string, error) {
	if len(c.secret) == 0 {
		return "", fmt.Errorf("session secret is empty")
	}

	token, err := jwt.NewBuilder().
		Claim("user", user).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(SessionTTL)).
		Build()
	if err != nil {
		return "", fmt.Errorf("unable to build session token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, c.secret))
	if err != nil {
		return "", fmt.Errorf("unable to sign session token: %w", err)
	}

	return string(signed), nil
}

// Decode verifies the signature and expiry of a session token. A bad
// signature, a malformed payload and an expired token are all the same to
// the caller: no session.
func (c *SessionCodec) Decode(serialized string) (UserClaims, error) {
	token, err := jwt.Parse(
		[]byte(serialized),
		jwt.WithKey(jwa.HS256, c.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return UserClaims{}, fmt.Errorf("unable to parse session token: %w", err)
	}

	userRaw, ok := token.Get("user")
	if !ok {
		return UserClaims{}, fmt.Errorf("session token has no user claim")
	}

	asJSON, err := json.Marshal(userRaw)
	if err != nil {
		return UserClaims{}, fmt.Errorf("unable to re-encode user claim: %w", err)
	}
	var user UserClaims
	if err := json.Unmarshal(asJSON, &user); err != nil {
		return UserClaims{}, fmt.Errorf("unable to decode user claim: %w", err)
	}

	return user, nil
}
