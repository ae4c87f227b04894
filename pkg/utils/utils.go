package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultKeyCost is the bcrypt cost used for internal API keys.
const DefaultKeyCost = 12

// HashKey hashes a shared secret with bcrypt.
func HashKey(key string) (string, error) {
	return hashKey(key, DefaultKeyCost)
}

func hashKey(key string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	return string(bytes), err
}

// CheckKeyHash compares a plain secret with a bcrypt hash.
func CheckKeyHash(key, hash string) bool {
	if key == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
