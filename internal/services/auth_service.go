package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"spendlens/internal/auth"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/storage"
)

// Session is returned by Register and Login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      core.User `json:"user"`
}

// TOTPSetup carries a freshly generated secret for the authenticator app.
type TOTPSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

type AuthService struct {
	users      storage.UserStore
	tokens     *auth.TokenIssuer
	totpIssuer string
	logger     *log.Logger
	now        func() time.Time
}

func NewAuthService(users storage.UserStore, tokens *auth.TokenIssuer, totpIssuer string, logger *log.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		totpIssuer: totpIssuer,
		logger:     logger.WithComponent(log.ComponentAuth),
		now:        time.Now,
	}
}

// CreateUser validates and stores a new account without issuing a token.
func (s *AuthService) CreateUser(ctx context.Context, name, email, password string) (core.User, error) {
	u := core.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     core.NormalizeEmail(email),
		CreatedAt: s.now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if err := core.ValidatePassword(password); err != nil {
		return core.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash

	saved, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, err
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldOwnerID, saved.ID)
	return saved, nil
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (Session, error) {
	u, err := s.CreateUser(ctx, name, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.session(u)
}

// Login checks the password and, when two-factor is enabled, the one-time
// code.
func (s *AuthService) Login(ctx context.Context, email, password, otp string) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		s.logger.WarnContext(ctx, "Login rejected",
			log.FieldOwnerID, u.ID,
			log.FieldErrorType, log.ErrorTypeAuth)
		return Session{}, core.ErrInvalidCredentials
	}
	if u.TOTPEnabled {
		if err := auth.VerifyTOTP(u.TOTPSecret, otp); err != nil {
			return Session{}, err
		}
	}
	return s.session(u)
}

// SetupTOTP stores a new secret for the user and switches two-factor off
// until EnableTOTP confirms a code from it. When two-factor is already on,
// code must be valid for the current secret.
func (s *AuthService) SetupTOTP(ctx context.Context, userID, code string) (TOTPSetup, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return TOTPSetup{}, err
	}
	if u.TOTPEnabled {
		if err := auth.VerifyTOTP(u.TOTPSecret, code); err != nil {
			s.logger.WarnContext(ctx, "Two-factor reset rejected",
				log.FieldOwnerID, u.ID,
				log.FieldErrorType, log.ErrorTypeAuth)
			return TOTPSetup{}, err
		}
	}

	secret, url, err := auth.GenerateTOTP(s.totpIssuer, u.Email)
	if err != nil {
		return TOTPSetup{}, err
	}
	if err := s.users.UpdateUserTOTP(ctx, u.ID, secret, false); err != nil {
		return TOTPSetup{}, fmt.Errorf("store totp secret: %w", err)
	}
	return TOTPSetup{Secret: secret, URL: url}, nil
}

// EnableTOTP turns two-factor on once the user proves they hold the secret.
func (s *AuthService) EnableTOTP(ctx context.Context, userID, code string) error {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.TOTPSecret == "" {
		return fmt.Errorf("two-factor setup not started: %w", auth.ErrInvalidOTP)
	}
	if err := auth.VerifyTOTP(u.TOTPSecret, code); err != nil {
		return err
	}
	if err := s.users.UpdateUserTOTP(ctx, u.ID, u.TOTPSecret, true); err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	s.logger.InfoContext(ctx, "Two-factor enabled", log.FieldOwnerID, u.ID)
	return nil
}

func (s *AuthService) session(u core.User) (Session, error) {
	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: u}, nil
}
