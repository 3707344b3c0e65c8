package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS allows the configured origins. Credentials (the refresh cookie) are
// only allowed when the origin list is explicit.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		MaxAge:           3600,
		AllowCredentials: !slices.Contains(origins, "*"),
	})

	return handler.Handler
}
