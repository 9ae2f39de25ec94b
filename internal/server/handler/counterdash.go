package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/coindash/internal/dashboard"
)

// CounterDashHandler serves the counter dashboard.
type CounterDashHandler struct {
	counter *dashboard.Counter
	logger  *slog.Logger
}

// NewCounterDashHandler creates a CounterDashHandler.
func NewCounterDashHandler(counter *dashboard.Counter, logger *slog.Logger) *CounterDashHandler {
	return &CounterDashHandler{counter: counter, logger: logHandler(logger, "counterdash")}
}

// GetCounter responds with the counter view.
// GET /api/counter
func (h *CounterDashHandler) GetCounter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.counter.State())
}

type addRequest struct {
	Value *int64 `json:"value"`
}

// Add adds the request's value, or the configured step, to the total.
// POST /api/counter/add
func (h *CounterDashHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := h.counter.Add(r.Context(), req.Value)
	h.respond(w, r, state, err)
}

// Reset brings the total back to zero.
// POST /api/counter/reset
func (h *CounterDashHandler) Reset(w http.ResponseWriter, r *http.Request) {
	state, err := h.counter.Reset(r.Context())
	h.respond(w, r, state, err)
}

// Refresh asks the poller for an immediate fetch.
// POST /api/counter/refresh
func (h *CounterDashHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.counter.Trigger()
	writeAccepted(w)
}

// DismissError clears the error banner.
// DELETE /api/counter/error
func (h *CounterDashHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	h.counter.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

func (h *CounterDashHandler) respond(w http.ResponseWriter, r *http.Request, state dashboard.CounterState, err error) {
	if err != nil {
		h.logger.WarnContext(r.Context(), "counter action failed", slog.String("error", err.Error()))
		writeJSON(w, statusFor(err), struct {
			Error string `json:"error"`
			dashboard.CounterState
		}{Error: err.Error(), CounterState: state})
		return
	}
	writeJSON(w, http.StatusOK, state)
}
