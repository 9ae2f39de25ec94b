// Package dashboard composes the generic poller with the view state of each
// dashboard variant: the market table and the coin counter.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
)

// publishTimeout bounds one publish to the signal bus.
const publishTimeout = 2 * time.Second

// envelope is the frame pushed to WebSocket clients.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// publish marshals payload into an envelope and publishes it on channel. A nil
// bus disables publishing. Failures are logged and never surface to callers.
func publish(bus domain.SignalBus, logger *slog.Logger, channel string, payload any) {
	if bus == nil {
		return
	}
	data, err := json.Marshal(envelope{Type: channel, Payload: payload})
	if err != nil {
		logger.Error("marshal update", slog.String("channel", channel), slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := bus.Publish(ctx, channel, data); err != nil {
		logger.Warn("publish update",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
