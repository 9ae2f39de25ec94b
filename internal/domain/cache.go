package domain

import (
	"context"
	"time"
)

// RateLimiter provides per-key request rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides fire-and-forget pub/sub used to fan dashboard updates
// out to WebSocket clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Channel names published by the dashboards.
const (
	ChannelMarket  = "market"
	ChannelCounter = "counter"
)
