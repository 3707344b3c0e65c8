package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-auth-api/internal/model"
)

type tokenVerifier interface {
	VerifyAccess(tokenString string) (model.TokenClaims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	verifier tokenVerifier
}

func NewAuthMiddleware(verifier tokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth admits requests carrying a valid access token as a bearer
// credential and stores its claims in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authorization header")
			return
		}

		claims, err := m.verifier.VerifyAccess(strings.TrimSpace(header[7:]))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFromContext(ctx context.Context) (model.TokenClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(model.TokenClaims)
	return claims, ok
}
