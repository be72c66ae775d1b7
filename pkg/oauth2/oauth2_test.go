package oauth2_test

import (
	"strings"
	"testing"

	"github.com/chainid-fr/fcrelay/pkg/oauth2"
)

func TestGenerateCodeVerifier(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 16; i++ {
		verifier := oauth2.GenerateCodeVerifier()
		if len(verifier) != 128 {
			t.Fatalf("expected verifier of length 128, got %d", len(verifier))
		}
		for _, r := range verifier {
			if !strings.ContainsRune("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-", r) {
				t.Fatalf("verifier contains reserved character %q", r)
			}
		}
		if seen[verifier] {
			t.Fatal("verifier repeated across invocations")
		}
		seen[verifier] = true
	}
}

func TestS256ChallengeFromVerifier(t *testing.T) {
	// test vector from RFC 7636, appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := oauth2.S256ChallengeFromVerifier(verifier)
	if challenge != "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM" {
		t.Errorf("unexpected challenge: %s", challenge)
	}
}

func TestGenerateRandomString(t *testing.T) {
	if got := len(oauth2.GenerateRandomString(32)); got != 32 {
		t.Errorf("expected length 32, got %d", got)
	}
	if oauth2.GenerateRandomString(32) == oauth2.GenerateRandomString(32) {
		t.Error("two random strings are equal")
	}
}
