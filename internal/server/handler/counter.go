package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/alanyoungcy/coindash/internal/service"
)

// CounterHandler serves the counter service's /total resource.
type CounterHandler struct {
	svc    *service.CounterService
	logger *slog.Logger
}

// NewCounterHandler creates a CounterHandler.
func NewCounterHandler(svc *service.CounterService, logger *slog.Logger) *CounterHandler {
	return &CounterHandler{svc: svc, logger: logHandler(logger, "counter")}
}

// ServeHTTP dispatches on the request method. It is registered without a
// method pattern so that unsupported verbs get the plain-text 405 below
// rather than the mux's default.
// GET, POST /total
func (h *CounterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetTotal(w, r)
	case http.MethodPost:
		h.AddTotal(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method "+r.Method+" Not Allowed", http.StatusMethodNotAllowed)
	}
}

// GetTotal responds with the current total.
// GET /total
func (h *CounterHandler) GetTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.Total(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "read total", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read total")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total": total})
}

// AddTotal adds the request's value to the total.
// POST /total
func (h *CounterHandler) AddTotal(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.AddBody(r.Context(), body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidValue) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "add to total", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to update total")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
