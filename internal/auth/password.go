// Package auth issues and verifies access tokens, hashes passwords and
// checks one-time codes.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("no authorization token provided")
	ErrInvalidOTP   = errors.New("invalid one-time code")
	ErrOTPRequired  = errors.New("one-time code required")
)
