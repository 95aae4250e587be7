package services

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/auth"
	"spendlens/internal/core"
	"spendlens/internal/storage/memory"
)

func newAuthService() (*AuthService, *auth.TokenIssuer) {
	tokens := auth.NewTokenIssuer("test-secret", time.Hour, "spendlens")
	return NewAuthService(memory.New(), tokens, "spendlens", testLogger()), tokens
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, tokens := newAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, "Alice", " Alice@Example.com ", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.NotEqual(t, "longenough", reg.User.PasswordHash)

	claims, err := tokens.Verify(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.Subject)

	_, err = svc.Register(ctx, "Alice again", "alice@example.com", "longenough")
	assert.ErrorIs(t, err, core.ErrEmailTaken)

	login, err := svc.Login(ctx, "ALICE@example.com", "longenough", "")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "alice@example.com", "wrong-password", "")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "longenough", "")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "a@example.com", "longenough")
	assert.ErrorIs(t, err, core.ErrEmptyName)
	_, err = svc.Register(ctx, "A", "not-an-email", "longenough")
	assert.ErrorIs(t, err, core.ErrInvalidEmail)
	_, err = svc.Register(ctx, "A", "a@example.com", "short")
	assert.ErrorIs(t, err, core.ErrWeakPassword)
}

func TestAuthService_TwoFactor(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, "Alice", "alice@example.com", "longenough")
	require.NoError(t, err)

	setup, err := svc.SetupTOTP(ctx, reg.User.ID, "")
	require.NoError(t, err)
	assert.Contains(t, setup.URL, "otpauth://")

	// not enabled yet: password alone still works
	_, err = svc.Login(ctx, "alice@example.com", "longenough", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.EnableTOTP(ctx, reg.User.ID, "000000x"), auth.ErrInvalidOTP)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.EnableTOTP(ctx, reg.User.ID, code))

	_, err = svc.Login(ctx, "alice@example.com", "longenough", "")
	assert.ErrorIs(t, err, auth.ErrOTPRequired)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	_, err = svc.Login(ctx, "alice@example.com", "longenough", code)
	assert.NoError(t, err)
}

func TestAuthService_SetupTOTPKeepsActiveSecretWithoutCode(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, "Alice", "alice@example.com", "longenough")
	require.NoError(t, err)
	first, err := svc.SetupTOTP(ctx, reg.User.ID, "")
	require.NoError(t, err)
	code, err := totp.GenerateCode(first.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.EnableTOTP(ctx, reg.User.ID, code))

	_, err = svc.SetupTOTP(ctx, reg.User.ID, "")
	assert.ErrorIs(t, err, auth.ErrOTPRequired)
	_, err = svc.SetupTOTP(ctx, reg.User.ID, "abcdef")
	assert.ErrorIs(t, err, auth.ErrInvalidOTP)

	// still enforced after the rejected resets
	_, err = svc.Login(ctx, "alice@example.com", "longenough", "")
	assert.ErrorIs(t, err, auth.ErrOTPRequired)

	code, err = totp.GenerateCode(first.Secret, time.Now())
	require.NoError(t, err)
	second, err := svc.SetupTOTP(ctx, reg.User.ID, code)
	require.NoError(t, err)
	assert.NotEqual(t, first.Secret, second.Secret)

	code, err = totp.GenerateCode(second.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.EnableTOTP(ctx, reg.User.ID, code))
	_, err = svc.Login(ctx, "alice@example.com", "longenough", "")
	assert.ErrorIs(t, err, auth.ErrOTPRequired)
}

func TestAuthService_SetupTOTPUnknownUser(t *testing.T) {
	svc, _ := newAuthService()
	_, err := svc.SetupTOTP(context.Background(), "missing", "")
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}
