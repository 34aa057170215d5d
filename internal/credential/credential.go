// Package credential provides secret hashing and comparison for refresh
// tokens. Password hashing lives in the user domain; this package only covers
// high-entropy secrets where a fast hash is sufficient.
package credential

import (
	"crypto/sha3"
	"crypto/subtle"
	"encoding/base64"
)

// Verifier hashes secrets and compares plaintexts against stored hashes.
type Verifier interface {
	Hash(secret string) string
	Verify(secret, storedHash string) bool
}

// SHA3Verifier hashes secrets with SHA3-256.
type SHA3Verifier struct{}

// NewSHA3Verifier returns a Verifier backed by SHA3-256.
func NewSHA3Verifier() *SHA3Verifier {
	return &SHA3Verifier{}
}

func (v *SHA3Verifier) Hash(secret string) string {
	h := sha3.Sum256([]byte(secret))
	return base64.RawStdEncoding.EncodeToString(h[:])
}

func (v *SHA3Verifier) Verify(secret, storedHash string) bool {
	computed := v.Hash(secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
