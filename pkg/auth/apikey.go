package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey hashes an API key using bcrypt for storage at rest.
func HashAPIKey(key string) (string, error) {
	if len(key) < 16 {
		return "", errors.New("api key must be at least 16 characters long")
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyAPIKey compares a presented API key with a stored bcrypt hash.
func VerifyAPIKey(key, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}
