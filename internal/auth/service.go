package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/courierchat/courier-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrTokenMissing is returned when no token is presented at connection time.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenInvalid is returned for malformed, mis-signed, or expired tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrIdentityNotFound is returned when the token subject no longer exists.
	ErrIdentityNotFound = errors.New("identity not found")
)

// Mailer delivers password-reset links out of band.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Service provides authentication operations and acts as the connection
// gatekeeper for the realtime transport.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
	mailer    Mailer
	resetTTL  time.Duration
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig, mailer Mailer, resetTTL time.Duration) *Service {
	if resetTTL <= 0 {
		resetTTL = 15 * time.Minute
	}
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
		mailer:    mailer,
		resetTTL:  resetTTL,
	}
}

// Register creates a new user with hashed password and returns an access token.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return "", ErrInvalidUsername
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}

	// Check if user already exists
	existing, err := s.store.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return "", ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, strings.TrimSpace(email), hashedPassword)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// Login validates credentials and returns an access token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// Authenticate validates a token presented at connection establishment and
// resolves it to the identity it names. It never touches presence state.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*store.User, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.Purpose != "" {
		// Reset tokens cannot open connections.
		return nil, ErrTokenInvalid
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityNotFound, err)
	}

	return user, nil
}

// ChangePassword sets a new password for the given user.
func (s *Service) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrInvalidPassword
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// RequestPasswordReset issues a short-lived reset token and mails it to the
// account's email address.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIdentityNotFound, err)
	}

	token, err := GenerateResetToken(s.jwtConfig, user.ID, s.resetTTL)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	if tokenString == "" {
		return ErrTokenMissing
	}

	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.Purpose != purposePasswordReset {
		return ErrTokenInvalid
	}

	return s.ChangePassword(ctx, claims.UserID, newPassword)
}

// ValidateToken validates an access token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
