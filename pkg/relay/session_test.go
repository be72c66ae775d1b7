package relay

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func TestSessionRoundTrip(t *testing.T) {
	codec := NewSessionCodec("test-secret")
	user := UserClaims{
		Sub:        "user-1",
		GivenName:  "Jean",
		FamilyName: "Dupont",
		BirthDate:  "1990-01-01",
		Email:      "a@b.fr",
	}

	token, err := codec.Encode(user)
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}

	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}
	if decoded != user {
		t.Errorf("round trip mismatch: %+v != %+v", decoded, user)
	}
}

func TestSessionExpiry(t *testing.T) {
	codec := NewSessionCodec("test-secret")

	token, err := codec.Encode(UserClaims{Sub: "user-1"})
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}

	parsed, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}
	want := time.Now().Add(SessionTTL)
	if diff := parsed.Expiration().Sub(want); diff < -time.Second || diff > time.Second {
		t.Errorf("exp not within 1s of now+%v: off by %v", SessionTTL, diff)
	}
}

func TestSessionDecodeWrongKey(t *testing.T) {
	token, err := NewSessionCodec("right-secret").Encode(UserClaims{Sub: "user-1"})
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}

	if _, err := NewSessionCodec("wrong-secret").Decode(token); err == nil {
		t.Error("expected error for wrong key, got nil")
	}
}

func TestSessionDecodeExpired(t *testing.T) {
	expired, err := jwt.NewBuilder().
		Claim("user", UserClaims{Sub: "user-1"}).
		Expiration(time.Now().Add(-time.Minute)).
		Build()
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}
	signed, err := jwt.Sign(expired, jwt.WithKey(jwa.HS256, []byte("test-secret")))
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}

	if _, err := NewSessionCodec("test-secret").Decode(string(signed)); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestSessionDecodeGarbage(t *testing.T) {
	if _, err := NewSessionCodec("test-secret").Decode("garbage"); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestSessionEncodeEmptySecret(t *testing.T) {
	if _, err := NewSessionCodec("").Encode(UserClaims{Sub: "user-1"}); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestSessionDecodeMissingUserClaim(t *testing.T) {
	token, err := jwt.NewBuilder().
		Expiration(time.Now().Add(time.Hour)).
		Build()
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte("test-secret")))
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}

	if _, err := NewSessionCodec("test-secret").Decode(string(signed)); err == nil {
		t.Error("expected error for token without user claim, got nil")
	}
}
