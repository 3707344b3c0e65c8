package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go-auth-api/internal/config"
	"go-auth-api/internal/database"
	"go-auth-api/internal/handler"
	"go-auth-api/internal/metrics"
	"go-auth-api/internal/middleware"
	"go-auth-api/internal/password"
	"go-auth-api/internal/repository"
	"go-auth-api/internal/router"
	"go-auth-api/internal/service"
	"go-auth-api/internal/token"
	"go-auth-api/internal/validation"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	logger       *slog.Logger
	cleanupFuncs []func()
}

// New builds every component once and wires them together. Nothing here is
// stored in package state.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var cleanupFuncs []func()
	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	users, checker, err := openUserStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if db, ok := checker.(*database.DB); ok {
		cleanupFuncs = append(cleanupFuncs, db.Close)
	}

	tokens, err := token.NewManager(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}

	validator, err := validation.New()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to compile request schemas: %w", err)
	}

	appMetrics := metrics.New()
	authService := service.NewAuthService(
		users,
		password.NewBcrypt(cfg.BcryptCost),
		tokens,
		service.WithRecorder(appMetrics),
		service.WithLogger(logger),
	)

	authHandler := handler.NewAuthHandler(authService, validator, handler.CookieConfig{
		Name:   cfg.RefreshCookieName,
		Path:   cookiePath(cfg.APIPrefix),
		Secure: cfg.CookieSecure,
		MaxAge: tokens.RefreshTTL(),
	}, logger)

	appRouter := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
		Metrics:        appMetrics,
	}, middleware.NewAuthMiddleware(tokens), router.Handlers{
		Auth:   authHandler,
		System: handler.NewSystemHandler(checker, logger),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		logger:       logger,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func openUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.UserStore, handler.HealthChecker, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory user store; accounts are lost on restart")
		return repository.NewMemoryUserRepository(), nil, nil
	}

	if cfg.DBAutoMigrate {
		if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	logger.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, database.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return repository.NewUserRepository(db.Pool), db, nil
}

// cookiePath scopes the refresh cookie to the auth routes under prefix. A
// root prefix of "/" must not produce "//auth".
func cookiePath(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/auth"
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		a.Close()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.Close()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}

// Close releases the database pool. Run calls it on exit.
func (a *App) Close() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
