// Package auth issues and validates access tokens, hashes passwords and
// guards gin routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Issuer is written into every token.
	Issuer = "cryptomark"

	blacklistPrefix = "cryptomark:jwt:blacklist:"
)

var (
	// ErrInvalidToken is returned for malformed, expired or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenRevoked is returned for tokens revoked by logout.
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims are the JWT claims of an access token.
type Claims struct {
	jwt.StandardClaims
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// TokenManager signs access tokens and tracks revoked ones in Redis.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	now    func() time.Time
}

// NewTokenManager creates a manager signing with secret (HS256). A nil
// Redis client disables revocation.
func NewTokenManager(secret string, ttl time.Duration, redisClient *redis.Client) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		redis:  redisClient,
		now:    time.Now,
	}
}

// Issue returns a signed token for the user and its expiry.
func (m *TokenManager) Issue(userID uint, email string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			ExpiresAt: expires.Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    Issuer,
			Subject:   email,
		},
		UserID: userID,
		Email:  email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// Parse validates the signature and expiry of token.
func (m *TokenManager) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate parses token and rejects it when revoked.
func (m *TokenManager) Validate(ctx context.Context, token string) (*Claims, error) {
	claims, err := m.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := m.IsRevoked(ctx, claims)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blacklists the token until it would have expired anyway.
func (m *TokenManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.redis == nil {
		return nil
	}
	ttl := time.Unix(claims.ExpiresAt, 0).Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.redis.Set(ctx, blacklistPrefix+claims.Id, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token was blacklisted.
func (m *TokenManager) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	if m.redis == nil {
		return false, nil
	}
	n, err := m.redis.Exists(ctx, blacklistPrefix+claims.Id).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}
