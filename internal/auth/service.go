package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/cryptomark/internal/store"
	"github.com/Sternrassler/cryptomark/pkg/logging"
)

// ErrInvalidCredentials is returned when the email or password is wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the persistence the service needs. *store.Store satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, user *store.User) error
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	TouchLogin(ctx context.Context, id uint, at time.Time) error
}

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"access_token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *store.User `json:"user"`
}

// Service implements registration, login and logout.
type Service struct {
	users  UserStore
	tokens *TokenManager
	logger zerolog.Logger
}

// NewService creates an auth service.
func NewService(users UserStore, tokens *TokenManager) *Service {
	return &Service{users: users, tokens: tokens, logger: logging.NewLogger("auth")}
}

// Tokens returns the token manager used by the service.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. A taken email yields store.ErrDuplicate.
func (s *Service) Register(ctx context.Context, email, name, password string) (*store.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		Email:        NormalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("User registered")
	return user, nil
}

// Login checks the credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("Failed to record login time")
	} else {
		user.LastLoginAt = &now
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("User logged in")
	return &Session{Token: token, TokenType: "Bearer", ExpiresAt: expires, User: user}, nil
}

// Logout revokes the token described by claims.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return err
	}
	s.logger.Info().Uint("user_id", claims.UserID).Msg("User logged out")
	return nil
}
