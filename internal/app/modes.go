package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/coindash/internal/dashboard"
	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/alanyoungcy/coindash/internal/platform/coingecko"
	"github.com/alanyoungcy/coindash/internal/platform/counterapi"
	"github.com/alanyoungcy/coindash/internal/server"
	"github.com/alanyoungcy/coindash/internal/server/handler"
	"github.com/alanyoungcy/coindash/internal/server/ws"
	"github.com/alanyoungcy/coindash/internal/service"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// poller is a dashboard driven by a poll loop.
type poller interface {
	Run(ctx context.Context) error
	Close()
}

// serve builds every component that runs in the configured mode, registers
// its routes and runs the pollers, the WebSocket hub and the HTTP server in
// one errgroup.
func (a *App) serve(ctx context.Context, deps *Dependencies) error {
	startedAt := time.Now().UTC()
	g, ctx := errgroup.WithContext(ctx)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger, deps.HealthChecks),
	}
	snapshots := map[string]ws.SnapshotFunc{}
	var (
		variants []string
		pollers  []poller
	)

	// Counter service.
	if a.cfg.Runs("counter") {
		svc := service.NewCounterService(
			deps.CounterStore,
			service.InvalidPolicy(a.cfg.Counter.InvalidValue),
			a.cfg.Counter.Message,
			a.logger,
		)
		handlers.Counter = handler.NewCounterHandler(svc, a.logger)
		variants = append(variants, "counter")
		a.logger.InfoContext(ctx, "counter service enabled",
			slog.String("backend", a.cfg.Counter.Backend),
			slog.String("invalid_value", a.cfg.Counter.InvalidValue),
		)
	}

	// Market dashboard.
	if a.cfg.Runs("market") {
		mc := a.cfg.Market
		var opts []coingecko.Option
		if mc.APIKey != "" {
			opts = append(opts, coingecko.WithAPIKey(mc.APIKey))
		}
		if mc.VsCurrency != "" {
			opts = append(opts, coingecko.WithVsCurrency(mc.VsCurrency))
		}
		src := coingecko.NewClient(mc.BaseURL, mc.Timeout.Duration, opts...)

		market := dashboard.NewMarket(dashboard.MarketConfig{
			PollInterval: mc.PollInterval.Duration,
			Timeout:      mc.Timeout.Duration,
			PageSize:     mc.PageSize,
			SortKey:      domain.SortKey(mc.SortKey),
			SortDir:      domain.SortDirection(mc.SortDir),
		}, src, deps.SignalBus, a.logger)

		handlers.Market = handler.NewMarketHandler(market, a.logger)
		snapshots[domain.ChannelMarket] = func() any { return market.State() }
		variants = append(variants, "market")
		pollers = append(pollers, market)
	}

	// Counter dashboard. In full mode it polls this process's own /total.
	if a.cfg.Runs("counterdash") {
		cc := a.cfg.CounterDash
		baseURL := cc.BaseURL
		if a.cfg.Runs("counter") {
			baseURL = fmt.Sprintf("http://127.0.0.1:%d", a.cfg.Server.Port)
		}
		api := counterapi.NewClient(baseURL, cc.Timeout.Duration)

		counter := dashboard.NewCounter(dashboard.CounterConfig{
			PollInterval: cc.PollInterval.Duration,
			Timeout:      cc.Timeout.Duration,
			Step:         cc.Step,
			HistorySize:  cc.HistorySize,
			Actions:      cc.Actions,
		}, api, deps.SignalBus, a.logger)

		handlers.CounterDash = handler.NewCounterDashHandler(counter, a.logger)
		snapshots[domain.ChannelCounter] = func() any { return counter.State() }
		variants = append(variants, "counterdash")
		pollers = append(pollers, counter)
	}

	handlers.Status = handler.NewStatusHandler(a.cfg.Mode, variants, startedAt)

	// WebSocket hub, only when there is something to push.
	var hub *ws.Hub
	if len(snapshots) > 0 {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: startedAt,
			Snapshots: snapshots,
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	for _, p := range pollers {
		g.Go(func() error {
			defer p.Close()
			return p.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	a.logger.InfoContext(ctx, "components started",
		slog.Any("variants", variants),
		slog.Int("port", a.cfg.Server.Port),
	)
	return g.Wait()
}
