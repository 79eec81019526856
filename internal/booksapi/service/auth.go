package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
	"github.com/openshelf/booksapi/internal/booksapi/store"
	"github.com/openshelf/booksapi/pkg/cryptox"
	"github.com/openshelf/booksapi/pkg/idx"
	"github.com/openshelf/booksapi/pkg/jwtx"
)

// MinPasswordLength is the registration password policy.
const MinPasswordLength = 8

var (
	ErrUserExists       = errors.New("user_already_exists")
	ErrUserNotFound     = errors.New("user_not_found")
	ErrPasswordTooShort = errors.New("password_too_short")

	// ErrInvalidCredentials means the account exists but the password is
	// wrong. Login reports an unknown username as ErrUserNotFound instead.
	ErrInvalidCredentials = errors.New("invalid_credentials")
)

type AuthService struct {
	Store     store.Store
	Tokens    jwtx.Signer
	AccessTTL time.Duration
}

// Register creates a new identity. The username uniqueness check is the
// atomic insert in the credential store, never a separate read.
func (s *AuthService) Register(ctx context.Context, username, password string) (domain.User, error) {
	if len(password) < MinPasswordLength {
		return domain.User{}, ErrPasswordTooShort
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login verifies the credentials and mints a bearer token for the subject.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.TokenResponse, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenResponse{}, ErrUserNotFound
		}
		return domain.TokenResponse{}, fmt.Errorf("find user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return domain.TokenResponse{}, ErrInvalidCredentials
	}

	return s.IssueToken(user.Username, s.AccessTTL)
}

// IssueToken mints a token for the subject with the given lifetime. Login
// uses the configured TTL; tests exercise expiry by passing ttl=0.
func (s *AuthService) IssueToken(subject string, ttl time.Duration) (domain.TokenResponse, error) {
	claims := jwtx.NewAccessClaims(subject, ttl, time.Now().UTC())
	token, err := s.Tokens.Sign(claims)
	if err != nil {
		return domain.TokenResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

// ResolveSubject reports whether a verified token subject still maps to a
// stored user. The access guard folds any failure here into its generic
// invalid-credentials response.
func (s *AuthService) ResolveSubject(ctx context.Context, subject string) error {
	_, err := s.Store.Users().GetUserByUsername(ctx, subject)
	return err
}
