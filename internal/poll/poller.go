// Package poll keeps a local snapshot of a remote resource fresh. A Poller
// refreshes on a fixed interval and on demand, tracks whether a fetch is in
// flight and what the last failure was, and applies results in request order:
// a response to an older request never overwrites the result of a newer one.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
)

// FetchFunc retrieves a fresh snapshot.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// State is a point-in-time copy of a Poller's observable state.
type State[T any] struct {
	Snapshot  T
	Loading   bool
	Error     string
	UpdatedAt time.Time
	// Seq is the sequence number of the refresh whose outcome is currently
	// applied. Zero means nothing has completed yet.
	Seq uint64
}

// Config holds poller configuration.
type Config struct {
	Name    string        // Used in log lines.
	Timeout time.Duration // Per-fetch timeout; 0 means none.
}

// Poller owns one snapshot of type T.
type Poller[T any] struct {
	cfg    Config
	fetch  FetchFunc[T]
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	snapshot   T
	errMsg     string
	updatedAt  time.Time
	inFlight   int
	issuedSeq  uint64
	appliedSeq uint64
	closed     bool
	listeners  []func(State[T])

	trigger   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Poller that fetches with fn.
func New[T any](cfg Config, fn FetchFunc[T], logger *slog.Logger) *Poller[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller[T]{
		cfg:     cfg,
		fetch:   fn,
		logger:  logger.With(slog.String("poller", cfg.Name)),
		now:     time.Now,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// OnChange registers fn to be called with a fresh State after every change:
// a refresh starting, a refresh completing, an applied value, a dismissed
// error. Listeners run on the goroutine that caused the change.
func (p *Poller[T]) OnChange(fn func(State[T])) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// State returns a copy of the current state.
func (p *Poller[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Poller[T]) stateLocked() State[T] {
	return State[T]{
		Snapshot:  p.snapshot,
		Loading:   p.inFlight > 0,
		Error:     p.errMsg,
		UpdatedAt: p.updatedAt,
		Seq:       p.appliedSeq,
	}
}

// Refresh fetches a new snapshot. The previous error is cleared and the
// poller reports loading until the fetch returns, whatever the outcome. On
// success the snapshot is replaced wholesale; on failure the error message is
// set and the previous snapshot is kept. Either outcome is dropped when a
// newer refresh has already completed or the poller has been closed.
//
// The fetch error is returned for callers that want it; the poller has
// already recorded it.
func (p *Poller[T]) Refresh(ctx context.Context) error {
	seq, err := p.acquire()
	if err != nil {
		return err
	}

	var res *result[T]
	defer func() { p.release(seq, res) }()

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	v, err := p.fetch(ctx)
	res = &result[T]{value: v, err: err}
	return err
}

type result[T any] struct {
	value T
	err   error
}

// acquire marks a refresh as in flight and hands out its sequence number.
func (p *Poller[T]) acquire() (uint64, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, fmt.Errorf("poll: %s: %w", p.cfg.Name, domain.ErrClosed)
	}
	p.issuedSeq++
	seq := p.issuedSeq
	p.inFlight++
	p.errMsg = ""
	state := p.stateLocked()
	listeners := p.listeners
	p.mu.Unlock()

	notify(listeners, state)
	return seq, nil
}

// release ends the in-flight window opened by acquire and applies res when
// it is still the newest outcome. A nil res means the fetch never returned
// normally and only the in-flight count is released.
func (p *Poller[T]) release(seq uint64, res *result[T]) {
	p.mu.Lock()
	p.inFlight--

	if p.closed {
		p.mu.Unlock()
		p.logger.Debug("dropping result after close", slog.Uint64("seq", seq))
		return
	}

	switch {
	case res == nil:
	case seq <= p.appliedSeq:
		p.logger.Debug("dropping stale result",
			slog.Uint64("seq", seq),
			slog.Uint64("applied_seq", p.appliedSeq),
		)
	case res.err != nil:
		p.appliedSeq = seq
		p.errMsg = res.err.Error()
		p.logger.Warn("refresh failed",
			slog.Uint64("seq", seq),
			slog.String("error", res.err.Error()),
		)
	default:
		p.appliedSeq = seq
		p.snapshot = res.value
		p.errMsg = ""
		p.updatedAt = p.now()
		p.logger.Debug("refresh applied", slog.Uint64("seq", seq))
	}

	state := p.stateLocked()
	listeners := p.listeners
	p.mu.Unlock()

	notify(listeners, state)
}

// Apply installs v as the newest snapshot without fetching, e.g. a value
// returned by a mutation. Refreshes issued before the call are treated as
// stale when they complete.
func (p *Poller[T]) Apply(v T) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.issuedSeq++
	p.appliedSeq = p.issuedSeq
	p.snapshot = v
	p.errMsg = ""
	p.updatedAt = p.now()
	state := p.stateLocked()
	listeners := p.listeners
	p.mu.Unlock()

	notify(listeners, state)
}

// Fail records err as the current error without touching the snapshot.
func (p *Poller[T]) Fail(err error) {
	p.setError(err.Error())
}

// DismissError clears the current error message.
func (p *Poller[T]) DismissError() {
	p.setError("")
}

func (p *Poller[T]) setError(msg string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.errMsg = msg
	state := p.stateLocked()
	listeners := p.listeners
	p.mu.Unlock()

	notify(listeners, state)
}

// Trigger asks the run loop for an immediate refresh. It never blocks; a
// trigger that arrives while one is already pending is folded into it.
func (p *Poller[T]) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes immediately, then on every tick of interval and on every
// Trigger, until ctx is cancelled or Close is called. Each refresh runs on its
// own goroutine so a slow fetch never delays the timer; overlapping fetches
// are resolved by sequence number.
func (p *Poller[T]) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("poller started", slog.Duration("interval", interval))

	p.spawn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-p.done:
			p.logger.Info("poller closed")
			return nil
		case <-ticker.C:
			p.spawn(ctx)
		case <-p.trigger:
			p.spawn(ctx)
		}
	}
}

func (p *Poller[T]) spawn(ctx context.Context) {
	go func() {
		_ = p.Refresh(ctx)
	}()
}

// Close tears the poller down: the run loop exits and the timer stops.
// Fetches already in flight are not cancelled, but their results are
// discarded. Close is idempotent.
func (p *Poller[T]) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.done)
	})
}

func notify[T any](listeners []func(State[T]), state State[T]) {
	for _, fn := range listeners {
		fn(state)
	}
}
