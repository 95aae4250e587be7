package auth

import (
	"fmt"

	"github.com/pquerna/otp/totp"
)

// GenerateTOTP creates a new secret for accountName and its otpauth:// URL.
func GenerateTOTP(issuer, accountName string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// VerifyTOTP checks code against secret for the current period.
func VerifyTOTP(secret, code string) error {
	if code == "" {
		return ErrOTPRequired
	}
	if !totp.Validate(code, secret) {
		return ErrInvalidOTP
	}
	return nil
}
