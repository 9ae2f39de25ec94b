package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/alanyoungcy/coindash/internal/platform/counterapi"
	"github.com/alanyoungcy/coindash/internal/poll"
)

// Counter actions.
const (
	ActionAdd   = "add"
	ActionReset = "reset"
)

// ErrActionDisabled is returned for an action the dashboard is not
// configured to offer.
var ErrActionDisabled = fmt.Errorf("%w: action disabled", domain.ErrInvalidValue)

// CounterAPI is the subset of the counter service client the dashboard uses.
type CounterAPI interface {
	Total(ctx context.Context) (int64, error)
	Add(ctx context.Context, value int64) (counterapi.AddResponse, error)
}

// CounterConfig holds the counter dashboard parameters.
type CounterConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Step         int64
	HistorySize  int
	Actions      []string
}

// HistoryEntry records one action taken from the dashboard.
type HistoryEntry struct {
	Action string    `json:"action"`
	Value  int64     `json:"value"`
	Total  int64     `json:"total"`
	At     time.Time `json:"at"`
}

// CounterState is the counter dashboard as served to the rendering layer.
type CounterState struct {
	Total     int64          `json:"total"`
	Step      int64          `json:"step"`
	Actions   []string       `json:"actions"`
	History   []HistoryEntry `json:"history"`
	Loading   bool           `json:"loading"`
	Error     string         `json:"error"`
	UpdatedAt *time.Time     `json:"updated_at"`
	Seq       uint64         `json:"seq"`
}

// Counter is the coin counter dashboard: a polled total plus the add and
// reset actions and a short log of what was done.
type Counter struct {
	cfg     CounterConfig
	api     CounterAPI
	poller  *poll.Poller[int64]
	bus     domain.SignalBus
	logger  *slog.Logger
	actions map[string]bool
	now     func() time.Time

	mu      sync.Mutex
	history []HistoryEntry // newest first
}

// NewCounter creates a counter dashboard over api. bus may be nil.
func NewCounter(cfg CounterConfig, api CounterAPI, bus domain.SignalBus, logger *slog.Logger) *Counter {
	if cfg.Step == 0 {
		cfg.Step = 1
	}
	if cfg.HistorySize < 0 {
		cfg.HistorySize = 0
	}

	logger = logger.With(slog.String("component", "counter_dashboard"))
	c := &Counter{
		cfg:     cfg,
		api:     api,
		bus:     bus,
		logger:  logger,
		actions: make(map[string]bool, len(cfg.Actions)),
		now:     time.Now,
	}
	for _, a := range cfg.Actions {
		c.actions[a] = true
	}
	c.poller = poll.New(poll.Config{Name: "counter", Timeout: cfg.Timeout}, api.Total, logger)
	c.poller.OnChange(func(poll.State[int64]) { c.publish() })
	return c
}

// Run polls until ctx is cancelled or Close is called.
func (c *Counter) Run(ctx context.Context) error {
	return c.poller.Run(ctx, c.cfg.PollInterval)
}

// Close stops polling.
func (c *Counter) Close() { c.poller.Close() }

// Refresh fetches synchronously.
func (c *Counter) Refresh(ctx context.Context) error { return c.poller.Refresh(ctx) }

// Trigger requests an immediate refresh from the run loop.
func (c *Counter) Trigger() { c.poller.Trigger() }

// DismissError clears the error banner.
func (c *Counter) DismissError() { c.poller.DismissError() }

// Add adds value to the remote total, or the configured step when value is
// nil. The snapshot is updated from the reply without waiting for the next
// poll.
func (c *Counter) Add(ctx context.Context, value *int64) (CounterState, error) {
	if !c.actions[ActionAdd] {
		return c.State(), fmt.Errorf("dashboard: %s: %w", ActionAdd, ErrActionDisabled)
	}
	v := c.cfg.Step
	if value != nil {
		v = *value
	}
	return c.do(ctx, ActionAdd, &v, func(ctx context.Context) (counterapi.AddResponse, error) {
		return c.api.Add(ctx, v)
	})
}

// Reset brings the remote total back to zero by reading it and adding its
// negation. An add from another client between the two requests survives the
// reset.
func (c *Counter) Reset(ctx context.Context) (CounterState, error) {
	if !c.actions[ActionReset] {
		return c.State(), fmt.Errorf("dashboard: %s: %w", ActionReset, ErrActionDisabled)
	}
	var delta int64
	return c.do(ctx, ActionReset, &delta, func(ctx context.Context) (counterapi.AddResponse, error) {
		total, err := c.api.Total(ctx)
		if err != nil {
			return counterapi.AddResponse{}, err
		}
		delta = -total
		return c.api.Add(ctx, delta)
	})
}

// do runs fn and records its outcome. value is read after fn returns.
func (c *Counter) do(ctx context.Context, action string, value *int64, fn func(context.Context) (counterapi.AddResponse, error)) (CounterState, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := fn(ctx)
	if err != nil {
		c.logger.Warn("counter action failed",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		c.poller.Fail(err)
		return c.State(), fmt.Errorf("dashboard: %s: %w", action, err)
	}

	c.record(HistoryEntry{Action: action, Value: *value, Total: resp.Total, At: c.now().UTC()})
	c.poller.Apply(resp.Total)
	return c.State(), nil
}

func (c *Counter) record(e HistoryEntry) {
	if c.cfg.HistorySize == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append([]HistoryEntry{e}, c.history...)
	if len(c.history) > c.cfg.HistorySize {
		c.history = c.history[:c.cfg.HistorySize]
	}
}

// State returns the current counter view.
func (c *Counter) State() CounterState {
	ps := c.poller.State()

	c.mu.Lock()
	history := make([]HistoryEntry, len(c.history))
	copy(history, c.history)
	c.mu.Unlock()

	actions := make([]string, 0, len(c.cfg.Actions))
	actions = append(actions, c.cfg.Actions...)

	return CounterState{
		Total:     ps.Snapshot,
		Step:      c.cfg.Step,
		Actions:   actions,
		History:   history,
		Loading:   ps.Loading,
		Error:     ps.Error,
		UpdatedAt: timePtr(ps.UpdatedAt),
		Seq:       ps.Seq,
	}
}

func (c *Counter) publish() {
	publish(c.bus, c.logger, domain.ChannelCounter, c.State())
}
