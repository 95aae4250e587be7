package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// MinPasswordLength is enforced at registration.
const MinPasswordLength = 8

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	TOTPSecret   string    `json:"-"`
	TOTPEnabled  bool      `json:"totpEnabled"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmptyName          = errors.New("empty name")
	ErrWeakPassword       = errors.New("password too short (min 8 characters)")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// NormalizeEmail lowercases and trims an address so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	addr, err := mail.ParseAddress(u.Email)
	if err != nil || addr.Address != u.Email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword checks the plain-text password before hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
