package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go-auth-api/internal/model"
	"go-auth-api/pkg/apierror"
)

// UserStore is the persistence the auth flows depend on. Each lookup key has
// its own accessor.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByPhone(ctx context.Context, phone string) (model.User, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (model.User, error)
	Create(ctx context.Context, in model.NewUser) (model.User, error)
	SetRefreshToken(ctx context.Context, userID string, refreshToken string) error
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext string, storedHash string) bool
	Burn(plaintext string)
}

type TokenManager interface {
	Issue(claims model.TokenClaims) (model.AuthTokens, error)
	IssueAccess(claims model.TokenClaims) (string, error)
	VerifyRefresh(tokenString string) (model.TokenClaims, error)
}

// Recorder receives one event per finished auth flow.
type Recorder interface {
	AuthEvent(operation string, outcome string)
}

const (
	OpLogin    = "login"
	OpRegister = "register"
	OpRefresh  = "refresh"
	OpLogout   = "logout"

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type AuthService struct {
	users    UserStore
	hasher   PasswordHasher
	tokens   TokenManager
	recorder Recorder
	logger   *slog.Logger
}

type Option func(*AuthService)

func WithRecorder(r Recorder) Option {
	return func(s *AuthService) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *AuthService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenManager, opts ...Option) *AuthService {
	s := &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		recorder: noopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates by phone when one is given, otherwise by email. Unknown
// accounts and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthTokens, error) {
	user, err := s.lookupForLogin(ctx, req)
	if errors.Is(err, model.ErrUserNotFound) {
		s.hasher.Burn(req.Password)
		s.record(OpLogin, apierror.WrongCredentials())
		return model.AuthTokens{}, apierror.WrongCredentials()
	}
	if err != nil {
		s.record(OpLogin, err)
		return model.AuthTokens{}, err
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.record(OpLogin, apierror.WrongCredentials())
		return model.AuthTokens{}, apierror.WrongCredentials()
	}

	tokens, err := s.startSession(ctx, user)
	s.record(OpLogin, err)
	if err != nil {
		return model.AuthTokens{}, err
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return tokens, nil
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthTokens, error) {
	tokens, err := s.register(ctx, req)
	s.record(OpRegister, err)
	return tokens, err
}

func (s *AuthService) register(ctx context.Context, req model.RegisterRequest) (model.AuthTokens, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return model.AuthTokens{}, fmt.Errorf("email and password are required: %w", model.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthTokens{}, err
	}

	user, err := s.users.Create(ctx, model.NewUser{
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Roles:        slices.Clone(model.DefaultRoles),
	})
	if err != nil {
		return model.AuthTokens{}, err
	}

	tokens, err := s.startSession(ctx, user)
	if err != nil {
		return model.AuthTokens{}, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return tokens, nil
}

// Refresh issues a new access token for the session identified by
// refreshToken. The stored refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.AccessToken, error) {
	token, err := s.refresh(ctx, refreshToken)
	s.record(OpRefresh, err)
	return token, err
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (model.AccessToken, error) {
	user, err := s.users.FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.AccessToken{}, apierror.Forbidden()
	}
	if err != nil {
		return model.AccessToken{}, err
	}

	decoded, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.DebugContext(ctx, "refresh token rejected", "user_id", user.ID, "error", err)
		return model.AccessToken{}, apierror.Forbidden()
	}

	if !claimsMatch(user, decoded) {
		s.logger.DebugContext(ctx, "refresh token claims do not match user", "user_id", user.ID)
		return model.AccessToken{}, apierror.Forbidden()
	}

	access, err := s.tokens.IssueAccess(claimsFor(user))
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("issue access token: %w", err)
	}

	return model.AccessToken{AccessToken: access}, nil
}

// Logout clears the session holding refreshToken. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.logout(ctx, refreshToken)
	s.record(OpLogout, err)
	return err
}

func (s *AuthService) logout(ctx context.Context, refreshToken string) error {
	user, err := s.users.FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, ""); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user logged out", "user_id", user.ID)
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, email string) (model.UserProfile, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return model.UserProfile{}, err
	}
	return user.Profile(), nil
}

func (s *AuthService) lookupForLogin(ctx context.Context, req model.LoginRequest) (model.User, error) {
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		return s.users.FindByPhone(ctx, phone)
	}
	if email := normalizeEmail(req.Email); email != "" {
		return s.users.FindByEmail(ctx, email)
	}
	return model.User{}, model.ErrUserNotFound
}

// startSession issues a token pair and makes its refresh token the only
// persisted session for user.
func (s *AuthService) startSession(ctx context.Context, user model.User) (model.AuthTokens, error) {
	tokens, err := s.tokens.Issue(claimsFor(user))
	if err != nil {
		return model.AuthTokens{}, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return model.AuthTokens{}, err
	}

	return tokens, nil
}

func (s *AuthService) record(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) || errors.Is(err, model.ErrUserAlreadyExists) || errors.Is(err, model.ErrInvalidInput) {
			outcome = OutcomeRejected
		}
	}
	s.recorder.AuthEvent(operation, outcome)
}

func claimsFor(user model.User) model.TokenClaims {
	return model.TokenClaims{Email: user.Email, Roles: slices.Clone(user.Roles)}
}

// claimsMatch requires the token to name the stored email and to carry every
// role the user currently holds.
func claimsMatch(user model.User, decoded model.TokenClaims) bool {
	if decoded.Email != user.Email {
		return false
	}
	for _, role := range user.Roles {
		if !slices.Contains(decoded.Roles, role) {
			return false
		}
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type noopRecorder struct{}

func (noopRecorder) AuthEvent(string, string) {}
