package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-auth-api/internal/handler"
	"go-auth-api/internal/metrics"
	"go-auth-api/internal/middleware"
	"go-auth-api/internal/model"
	"go-auth-api/internal/password"
	"go-auth-api/internal/repository"
	"go-auth-api/internal/service"
	"go-auth-api/internal/token"
	"go-auth-api/internal/validation"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := token.NewManager(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	validator, err := validation.New()
	require.NoError(t, err)

	m := metrics.New()
	svc := service.NewAuthService(
		repository.NewMemoryUserRepository(),
		password.NewBcrypt(bcrypt.MinCost),
		tokens,
		service.WithRecorder(m),
		service.WithLogger(logger),
	)

	h := New(Options{
		APIPrefix:      "/api",
		RequestTimeout: 5 * time.Second,
		Logger:         logger,
		Metrics:        m,
	}, middleware.NewAuthMiddleware(tokens), Handlers{
		Auth:   handler.NewAuthHandler(svc, validator, handler.CookieConfig{Name: "refreshToken", MaxAge: time.Hour}, logger),
		System: handler.NewSystemHandler(nil, logger),
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method string, path string, body string, header http.Header) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func TestAuthFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	creds := `{"email":"alice@example.com","password":"secret123"}`

	resp, env := call(t, srv, http.MethodPost, "/api/auth/register", creds, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	resp, env = call(t, srv, http.MethodPost, "/api/auth/register", creds, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "User already exists", env.Error.Message)

	resp, env = call(t, srv, http.MethodPost, "/api/auth/login", creds, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pair model.AuthTokens
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	require.NotEmpty(t, pair.RefreshToken)

	refreshBody := `{"refreshToken":"` + pair.RefreshToken + `"}`
	resp, env = call(t, srv, http.MethodPost, "/api/auth/refresh", refreshBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var access model.AccessToken
	require.NoError(t, json.Unmarshal(env.Data, &access))
	require.NotEmpty(t, access.AccessToken)

	resp, env = call(t, srv, http.MethodGet, "/api/auth/me", "", http.Header{"Authorization": {"Bearer " + access.AccessToken}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile model.UserProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, []string{model.RoleUser}, profile.Roles)

	resp, _ = call(t, srv, http.MethodPost, "/api/auth/logout", refreshBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = call(t, srv, http.MethodPost, "/api/auth/refresh", refreshBody, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", env.Error.Message)
}

func TestLoginWrongCredentialsOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, env := call(t, srv, http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"whatever"}`, nil)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "Wrong credentials", env.Error.Message)
}

func TestLogoutUnknownTokenOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, env := call(t, srv, http.MethodPost, "/api/auth/logout", `{"refreshToken":"nobody"}`, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestRegisterMultiByteLongPasswordOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	// 40 characters passes the schema; 80 bytes exceeds bcrypt's limit.
	body := `{"email":"u@example.com","password":"` + strings.Repeat("é", 40) + `"}`
	resp, env := call(t, srv, http.MethodPost, "/api/auth/register", body, nil)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Invalid input", env.Error.Message)
}

func TestUndecodableRefreshBodiesOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, env := call(t, srv, http.MethodPost, "/api/auth/logout", "not json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, env = call(t, srv, http.MethodPost, "/api/auth/refresh", "[1]", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", env.Error.Message)
}

func TestMeRequiresBearer(t *testing.T) {
	srv := newTestServer(t)

	resp, env := call(t, srv, http.MethodGet, "/api/auth/me", "", nil)

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/nope", "/api/nope", "/api/auth/nope"} {
		resp, env := call(t, srv, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		require.NotNil(t, env.Error, path)
		assert.Equal(t, "Route not found", env.Error.Message, path)
	}
}

func TestWrongMethod(t *testing.T) {
	srv := newTestServer(t)

	resp, env := call(t, srv, http.MethodGet, "/api/auth/login", "", nil)

	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, env := call(t, srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	call(t, srv, http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"whatever"}`, nil)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `auth_api_auth_events_total{operation="login",outcome="rejected"} 1`)
	assert.Contains(t, string(body), `route="/api/auth/login"`)
}
