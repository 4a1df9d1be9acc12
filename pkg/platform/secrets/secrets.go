// Package secrets hashes and verifies login passwords. Nothing in here is
// reversible: the stored form is a bcrypt hash, and erasing an account
// removes the hash with the user row.
package secrets

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "compass/pkg/domain-errors"
)

// bcrypt silently ignores input beyond 72 bytes; refuse instead, so a
// long passphrase is never weaker than the user thinks it is.
const maxPasswordBytes = 72

// HashPassword returns the bcrypt hash to store for a new credential.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password cannot be empty")
	}
	if len(password) > maxPasswordBytes {
		return "", dErrors.New(dErrors.CodeValidation, "password exceeds 72 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword checks password against a stored hash. A mismatch comes
// back as an unauthorized domain error; anything else means the hash
// itself is unusable.
func VerifyPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return dErrors.New(dErrors.CodeUnauthorized, "password mismatch")
	default:
		return fmt.Errorf("verify password: %w", err)
	}
}
