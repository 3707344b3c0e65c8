// Package token issues and verifies the HS256 access/refresh JWT pair.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-auth-api/internal/model"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

type Claims struct {
	jwt.RegisteredClaims
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"typ"`
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%w: access and refresh secrets are required", ErrSigning)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrSigning)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token TTLs must be positive", ErrSigning)
	}

	m := &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Issue signs a fresh access/refresh pair for the same claims.
func (m *Manager) Issue(claims model.TokenClaims) (model.AuthTokens, error) {
	access, err := m.sign(claims, TypeAccess, m.accessSecret, m.accessTTL)
	if err != nil {
		return model.AuthTokens{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := m.sign(claims, TypeRefresh, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return model.AuthTokens{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return model.AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *Manager) IssueAccess(claims model.TokenClaims) (string, error) {
	access, err := m.sign(claims, TypeAccess, m.accessSecret, m.accessTTL)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

func (m *Manager) VerifyAccess(tokenString string) (model.TokenClaims, error) {
	return m.verifyType(tokenString, m.accessSecret, TypeAccess)
}

func (m *Manager) VerifyRefresh(tokenString string) (model.TokenClaims, error) {
	return m.verifyType(tokenString, m.refreshSecret, TypeRefresh)
}

// Verify checks signature and expiry against secret and only then decodes
// the identity claims.
func (m *Manager) Verify(tokenString string, secret []byte) (model.TokenClaims, error) {
	claims, err := m.parse(tokenString, secret)
	if err != nil {
		return model.TokenClaims{}, err
	}
	return toModel(claims), nil
}

func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

func (m *Manager) verifyType(tokenString string, secret []byte, expectedType string) (model.TokenClaims, error) {
	claims, err := m.parse(tokenString, secret)
	if err != nil {
		return model.TokenClaims{}, err
	}
	if claims.TokenType != expectedType {
		return model.TokenClaims{}, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, expectedType, claims.TokenType)
	}
	return toModel(claims), nil
}

func (m *Manager) parse(tokenString string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrSigning
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *Manager) sign(claims model.TokenClaims, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 || ttl <= 0 {
		return "", ErrSigning
	}

	now := m.now().UTC()
	roles := make([]string, len(claims.Roles))
	copy(roles, claims.Roles)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     claims.Email,
		Roles:     roles,
		TokenType: tokenType,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

func toModel(c *Claims) model.TokenClaims {
	roles := c.Roles
	if roles == nil {
		roles = []string{}
	}
	return model.TokenClaims{Email: c.Email, Roles: roles}
}
