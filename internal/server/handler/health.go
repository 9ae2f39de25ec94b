package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// checkTimeout bounds one dependency check.
const checkTimeout = 2 * time.Second

// HealthCheckFunc reports whether one dependency, such as the Redis
// connection behind the counter store, is usable.
type HealthCheckFunc func(ctx context.Context) error

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	logger *slog.Logger
	checks map[string]HealthCheckFunc
}

// NewHealthHandler creates a HealthHandler that runs checks on every request.
// With no checks the endpoint only reports that the process is serving.
func NewHealthHandler(logger *slog.Logger, checks map[string]HealthCheckFunc) *HealthHandler {
	return &HealthHandler{logger: logHandler(logger, "health"), checks: checks}
}

// HealthCheck runs every dependency check and responds 200 with status "ok"
// when all pass, or 503 with status "degraded" and the failing checks'
// errors.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			h.logger.WarnContext(r.Context(), "dependency unhealthy",
				slog.String("check", name),
				slog.String("error", err.Error()),
			)
			results[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"checks":    results,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
