package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-auth-api/internal/handler"
	"go-auth-api/internal/metrics"
	"go-auth-api/internal/middleware"
)

type Options struct {
	APIPrefix      string
	CORSOrigins    []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

type Handlers struct {
	Auth   *handler.AuthHandler
	System *handler.SystemHandler
}

func New(opts Options, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Sub-routers inherit these when mounted, so set them first.
	r.NotFound(h.System.NotFound)
	r.MethodNotAllowed(h.System.MethodNotAllowed)

	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.Logging(opts.Logger))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.Get("/health", h.System.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	prefix := opts.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}

	r.Route(prefix, func(api chi.Router) {
		api.Use(middleware.Timeout(opts.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})
	})

	return r
}
