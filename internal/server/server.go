package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/alanyoungcy/coindash/internal/server/handler"
	"github.com/alanyoungcy/coindash/internal/server/middleware"
	"github.com/alanyoungcy/coindash/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// RateLimit is the number of mutating requests per RateWindow per client
	// IP. Zero, or a nil limiter, disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers. Nil handlers
// belong to components that do not run in the current mode and their routes
// are left out.
type Handlers struct {
	Health      *handler.HealthHandler
	Status      *handler.StatusHandler
	Counter     *handler.CounterHandler
	Market      *handler.MarketHandler
	CounterDash *handler.CounterDashHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (rate limiting, logging, CORS) and attaches the
// WebSocket hub when one is given.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewHandler(cfg, handlers, wsHub, limiter, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// NewHandler builds the routed and middleware-wrapped http.Handler.
func NewHandler(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// --- Register routes ---

	if handlers.Health != nil {
		mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	}
	if handlers.Status != nil {
		mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	}

	// Counter service. Registered without a method so the handler answers
	// unsupported verbs itself.
	if handlers.Counter != nil {
		mux.Handle("/total", handlers.Counter)
	}

	// Market dashboard.
	if m := handlers.Market; m != nil {
		mux.HandleFunc("GET /api/market", m.GetMarket)
		mux.HandleFunc("PUT /api/market/view", m.UpdateView)
		mux.HandleFunc("POST /api/market/refresh", m.Refresh)
		mux.HandleFunc("DELETE /api/market/error", m.DismissError)
	}

	// Counter dashboard.
	if c := handlers.CounterDash; c != nil {
		mux.HandleFunc("GET /api/counter", c.GetCounter)
		mux.HandleFunc("POST /api/counter/add", c.Add)
		mux.HandleFunc("POST /api/counter/reset", c.Reset)
		mux.HandleFunc("POST /api/counter/refresh", c.Refresh)
		mux.HandleFunc("DELETE /api/counter/error", c.DismissError)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
