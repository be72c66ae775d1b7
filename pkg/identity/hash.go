package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Subject is the identity material an on-chain registration is derived
// from. Optional fields are empty strings.
type Subject struct {
	Sub        string
	GivenName  string
	FamilyName string
	BirthDate  string
}

// Normalize renders the subject as the canonical pipe-separated string the
// identity hash is computed over. The field order is part of the format and
// must not change: registered hashes would stop matching.
func Normalize(s Subject) string {
	return strings.Join([]string{s.Sub, s.GivenName, s.FamilyName, s.BirthDate}, "|")
}

// Hash returns the 0x-prefixed hex SHA-256 of the normalized subject.
func Hash(s Subject) string {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return "0x" + hex.EncodeToString(sum[:])
}

// RegistrationMessage is the statement an identity provider signs to attest
// a link between an identity hash and a blockchain account.
type RegistrationMessage struct {
	IdentityHash string
	MetadataURI  string
	Expiration   int64
	ProviderID   string
	UserAddress  string
}

// Hash returns the 0x-prefixed hex SHA-256 of the registration message in
// its canonical form.
func (m RegistrationMessage) Hash() string {
	canonical := fmt.Sprintf("%s|%s|%d|%s|%s",
		m.IdentityHash, m.MetadataURI, m.Expiration, m.ProviderID, m.UserAddress)
	sum := sha256.Sum256([]byte(canonical))
	return "0x" + hex.EncodeToString(sum[:])
}

// ValidSignatureShape checks that all components of a provider signature
// are present. Cryptographic verification happens on-chain.
func ValidSignatureShape(publicKey, messageHash, sigR, sigS string) bool {
	return publicKey != "" && messageHash != "" && sigR != "" && sigS != ""
}

// Expired reports whether a registration expiry has passed. Zero means no
// expiration.
func Expired(expiration int64, now time.Time) bool {
	if expiration == 0 {
		return false
	}
	return expiration < now.Unix()
}
