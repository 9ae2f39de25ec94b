package handler

import (
	"net/http"
	"time"
)

// StatusHandler serves the process mode and the dashboard variants it runs.
type StatusHandler struct {
	Mode      string
	Variants  []string
	StartedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, variants []string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{Mode: mode, Variants: variants, StartedAt: startedAt}
}

// GetStatus responds with the current mode and variants.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	variants := h.Variants
	if variants == nil {
		variants = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":       h.Mode,
		"variants":   variants,
		"started_at": h.StartedAt.UTC().Format(time.RFC3339),
	})
}
