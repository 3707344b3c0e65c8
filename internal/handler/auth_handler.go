package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go-auth-api/internal/middleware"
	"go-auth-api/internal/model"
	"go-auth-api/internal/validation"
	"go-auth-api/pkg/apierror"
)

const maxBodyBytes = 1 << 20

type authService interface {
	Login(ctx context.Context, req model.LoginRequest) (model.AuthTokens, error)
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (model.AccessToken, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, email string) (model.UserProfile, error)
}

type requestValidator interface {
	Check(schema string, body []byte) validation.Result
}

// CookieConfig controls the cookie that mirrors the refresh token.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	service   authService
	validator requestValidator
	cookie    CookieConfig
	logger    *slog.Logger
}

func NewAuthHandler(service authService, validator requestValidator, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "refreshToken"
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{service: service, validator: validator, cookie: cookie, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if !h.decodeValidated(w, r, validation.SchemaRegister, &payload) {
		return
	}

	tokens, err := h.service.Register(r.Context(), payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	writeSuccess(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if !h.decodeValidated(w, r, validation.SchemaLogin, &payload) {
		return
	}

	tokens, err := h.service.Login(r.Context(), payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	writeSuccess(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := h.refreshToken(w, r)
	if !ok {
		return
	}

	token, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, token)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := h.refreshToken(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), refreshToken); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.clearRefreshCookie(w)
	writeSuccess(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apierror.New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized))
		return
	}

	profile, err := h.service.CurrentUser(r.Context(), claims.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile)
}

// decodeValidated reads the body, checks it against schema and decodes it
// into dst. It writes the error response itself and reports whether the
// handler should continue.
func (h *AuthHandler) decodeValidated(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	body, ok := h.readBody(w, r)
	if !ok {
		return false
	}

	result := h.validator.Check(schema, body)
	switch result.Kind {
	case validation.KindValid:
	case validation.KindMalformed:
		writeError(w, r, h.logger, apierror.New("BAD_REQUEST", "Invalid JSON body", http.StatusBadRequest, result.Issues...))
		return false
	default:
		writeError(w, r, h.logger, apierror.Validation(result.Issues))
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, r, h.logger, apierror.New("BAD_REQUEST", "Invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

// refreshToken takes the token from the JSON body when present, falling back
// to the refresh cookie. A body that does not decode carries no token, so
// refresh answers 403 and logout is a no-op. An absent token is "".
func (h *AuthHandler) refreshToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, ok := h.readBody(w, r)
	if !ok {
		return "", false
	}

	if len(bytes.TrimSpace(body)) > 0 {
		var payload model.RefreshRequest
		if err := json.Unmarshal(body, &payload); err == nil {
			if token := strings.TrimSpace(payload.RefreshToken); token != "" {
				return token, true
			}
		}
	}

	if cookie, err := r.Cookie(h.cookie.Name); err == nil {
		return strings.TrimSpace(cookie.Value), true
	}
	return "", true
}

func (h *AuthHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, h.logger, apierror.New("PAYLOAD_TOO_LARGE", "Request body too large", http.StatusRequestEntityTooLarge))
			return nil, false
		}
		writeError(w, r, h.logger, apierror.New("BAD_REQUEST", "Could not read request body", http.StatusBadRequest))
		return nil, false
	}
	return body, true
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
