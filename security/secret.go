package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret hashes a client secret with bcrypt for storage at rest.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("security: hashing secret: %w", err)
	}
	return string(hash), nil
}

// CompareSecret reports whether the presented secret matches the stored
// bcrypt hash.
func CompareSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
