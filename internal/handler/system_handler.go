package handler

import (
	"context"
	"log/slog"
	"net/http"

	"go-auth-api/pkg/apierror"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type SystemHandler struct {
	checker HealthChecker
	logger  *slog.Logger
}

// NewSystemHandler accepts a nil checker for stores without a connection to
// check.
func NewSystemHandler(checker HealthChecker, logger *slog.Logger) *SystemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemHandler{checker: checker, logger: logger}
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		if err := h.checker.Health(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "health check failed", "error", err)
			writeError(w, r, h.logger, apierror.New("UNAVAILABLE", "Database unavailable", http.StatusServiceUnavailable))
			return
		}
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SystemHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, h.logger, apierror.RouteNotFound())
}

func (h *SystemHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, h.logger, apierror.New("METHOD_NOT_ALLOWED", "Method not allowed", http.StatusMethodNotAllowed))
}
