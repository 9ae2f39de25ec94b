package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/coindash/internal/dashboard"
)

// MarketHandler serves the market dashboard.
type MarketHandler struct {
	market *dashboard.Market
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(market *dashboard.Market, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{market: market, logger: logHandler(logger, "market")}
}

// GetMarket responds with the view state and the current projection.
// GET /api/market
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.market.State())
}

// UpdateView changes the query, sort key, sort direction or page size. The
// update is all-or-nothing.
// PUT /api/market/view
func (h *MarketHandler) UpdateView(w http.ResponseWriter, r *http.Request) {
	var u dashboard.ViewUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.market.Apply(u); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.market.State())
}

// Refresh asks the poller for an immediate fetch.
// POST /api/market/refresh
func (h *MarketHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "market refresh requested")
	h.market.Trigger()
	writeAccepted(w)
}

// DismissError clears the error banner.
// DELETE /api/market/error
func (h *MarketHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	h.market.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

// writeAccepted acknowledges a refresh request that runs out of band.
func writeAccepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
