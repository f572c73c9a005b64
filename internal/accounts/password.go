package accounts

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes    = 16
	hashBytes    = 32
	pbkdf2Rounds = 100_000
)

// newSalt returns a fresh random salt for a new password.
func newSalt() ([]byte, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// derivePasswordHash runs PBKDF2-HMAC-SHA256 over password with salt,
// 100,000 iterations, producing a 32-byte key.
func derivePasswordHash(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Rounds, hashBytes, sha256.New)
}

// verifyPassword reports whether password matches hash/salt, using a
// constant-time comparison so that matching-prefix length leaks nothing
// about the true hash over the wire.
func verifyPassword(password string, hash, salt []byte) bool {
	candidate := derivePasswordHash(password, salt)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}
