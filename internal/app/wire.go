package app

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/coindash/internal/cache/memory"
	"github.com/alanyoungcy/coindash/internal/cache/redis"
	"github.com/alanyoungcy/coindash/internal/config"
	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/alanyoungcy/coindash/internal/server/handler"
)

// Dependencies bundles the storage-level dependencies that the application
// components need. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// CounterStore holds the counter service's total. Nil when the counter
	// service does not run in the configured mode.
	CounterStore domain.CounterStore
	// SignalBus fans dashboard updates out to WebSocket clients.
	SignalBus domain.SignalBus
	// RateLimiter guards mutating routes. Nil when rate limiting is off.
	RateLimiter domain.RateLimiter
	// HealthChecks are run by /api/health, keyed by dependency name.
	HealthChecks map[string]handler.HealthCheckFunc
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources. Redis is only dialled when a
// component needs it; everything else runs in memory.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		SignalBus:    memory.NewSignalBus(),
		HealthChecks: map[string]handler.HealthCheckFunc{},
	}
	if cfg.Runs("counter") && cfg.Counter.Backend != "redis" {
		deps.CounterStore = memory.NewCounterStore()
	}

	if !cfg.UsesRedis() {
		return deps, cleanup, nil
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.HealthChecks["redis"] = redisClient.Ping

	// Replicas sharing Redis also share dashboard updates.
	deps.SignalBus = redis.NewSignalBus(redisClient)
	if cfg.Runs("counter") && cfg.Counter.Backend == "redis" {
		deps.CounterStore = redis.NewCounterStore(redisClient, cfg.Counter.Key)
	}
	if cfg.Server.RateLimit > 0 {
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	return deps, cleanup, nil
}
