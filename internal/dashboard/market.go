package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/alanyoungcy/coindash/internal/poll"
	"github.com/alanyoungcy/coindash/internal/view"
)

// MarketSource fetches the top coins by market cap.
type MarketSource interface {
	Markets(ctx context.Context, perPage int) ([]domain.Coin, error)
}

// MarketConfig holds the market dashboard parameters.
type MarketConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
	PageSize     int
	SortKey      domain.SortKey
	SortDir      domain.SortDirection
}

// MarketState is the market dashboard as served to the rendering layer.
type MarketState struct {
	Coins     []view.Row           `json:"coins"`
	Total     int                  `json:"total"`
	Query     string               `json:"query"`
	SortKey   domain.SortKey       `json:"sort_key"`
	SortDir   domain.SortDirection `json:"sort_dir"`
	PageSize  int                  `json:"page_size"`
	PageSizes []int                `json:"page_sizes"`
	Loading   bool                 `json:"loading"`
	Error     string               `json:"error"`
	UpdatedAt *time.Time           `json:"updated_at"`
	Seq       uint64               `json:"seq"`
}

// Market is the read-only market dashboard: a polled snapshot of the top
// coins plus the query, sort and page size the projection is computed with.
type Market struct {
	cfg    MarketConfig
	poller *poll.Poller[[]domain.Coin]
	bus    domain.SignalBus
	logger *slog.Logger

	mu       sync.RWMutex
	query    string
	sortKey  domain.SortKey
	sortDir  domain.SortDirection
	pageSize int
}

// NewMarket creates a market dashboard over src. bus may be nil.
func NewMarket(cfg MarketConfig, src MarketSource, bus domain.SignalBus, logger *slog.Logger) *Market {
	if !domain.ValidPageSize(cfg.PageSize) {
		cfg.PageSize = 50
	}
	if !cfg.SortKey.Valid() {
		cfg.SortKey = domain.SortByRank
	}
	if !cfg.SortDir.Valid() {
		cfg.SortDir = domain.Ascending
	}

	logger = logger.With(slog.String("component", "market_dashboard"))
	m := &Market{
		cfg:      cfg,
		bus:      bus,
		logger:   logger,
		sortKey:  cfg.SortKey,
		sortDir:  cfg.SortDir,
		pageSize: cfg.PageSize,
	}
	m.poller = poll.New(poll.Config{Name: "market", Timeout: cfg.Timeout},
		func(ctx context.Context) ([]domain.Coin, error) {
			return src.Markets(ctx, m.PageSize())
		}, logger)
	m.poller.OnChange(func(poll.State[[]domain.Coin]) { m.publish() })
	return m
}

// Run polls until ctx is cancelled or Close is called.
func (m *Market) Run(ctx context.Context) error {
	return m.poller.Run(ctx, m.cfg.PollInterval)
}

// Close stops polling.
func (m *Market) Close() { m.poller.Close() }

// Refresh fetches synchronously.
func (m *Market) Refresh(ctx context.Context) error { return m.poller.Refresh(ctx) }

// Trigger requests an immediate refresh from the run loop.
func (m *Market) Trigger() { m.poller.Trigger() }

// DismissError clears the error banner.
func (m *Market) DismissError() { m.poller.DismissError() }

// PageSize returns the number of coins requested per fetch.
func (m *Market) PageSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageSize
}

// SetQuery sets the free-text filter.
func (m *Market) SetQuery(q string) {
	m.mu.Lock()
	m.query = q
	m.mu.Unlock()
	m.publish()
}

// SetSortKey sets the sort attribute.
func (m *Market) SetSortKey(k domain.SortKey) error {
	k, err := view.ParseSortKey(string(k))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sortKey = k
	m.mu.Unlock()
	m.publish()
	return nil
}

// SetSortDirection sets the sort direction.
func (m *Market) SetSortDirection(d domain.SortDirection) error {
	d, err := view.ParseDirection(string(d))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sortDir = d
	m.mu.Unlock()
	m.publish()
	return nil
}

// SetPageSize sets the number of coins fetched per poll and triggers a
// refresh, since the page size is a request parameter of the data source.
func (m *Market) SetPageSize(n int) error {
	if _, err := view.ParsePageSize(n); err != nil {
		return err
	}
	m.mu.Lock()
	changed := m.pageSize != n
	m.pageSize = n
	m.mu.Unlock()
	if changed {
		m.poller.Trigger()
	}
	m.publish()
	return nil
}

// ViewUpdate is a partial update of the market view state. Nil fields are
// left as they are.
type ViewUpdate struct {
	Query    *string `json:"query"`
	SortKey  *string `json:"sort_key"`
	SortDir  *string `json:"sort_dir"`
	PageSize *int    `json:"page_size"`
}

// Apply validates every field of u and then applies them. Nothing is changed
// when any field is invalid.
func (m *Market) Apply(u ViewUpdate) error {
	var (
		key  domain.SortKey
		dir  domain.SortDirection
		size int
		err  error
	)
	if u.SortKey != nil {
		if key, err = view.ParseSortKey(*u.SortKey); err != nil {
			return err
		}
	}
	if u.SortDir != nil {
		if dir, err = view.ParseDirection(*u.SortDir); err != nil {
			return err
		}
	}
	if u.PageSize != nil {
		if size, err = view.ParsePageSize(*u.PageSize); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if u.Query != nil {
		m.query = *u.Query
	}
	if u.SortKey != nil {
		m.sortKey = key
	}
	if u.SortDir != nil {
		m.sortDir = dir
	}
	refetch := u.PageSize != nil && m.pageSize != size
	if u.PageSize != nil {
		m.pageSize = size
	}
	m.mu.Unlock()

	if refetch {
		m.poller.Trigger()
	}
	m.publish()
	return nil
}

// State returns the view state together with the derived projection.
func (m *Market) State() MarketState {
	ps := m.poller.State()

	m.mu.RLock()
	q := view.Query{Text: m.query, SortKey: m.sortKey, Direction: m.sortDir}
	pageSize := m.pageSize
	m.mu.RUnlock()

	return MarketState{
		Coins:     view.Rows(view.Compute(ps.Snapshot, q)),
		Total:     len(ps.Snapshot),
		Query:     q.Text,
		SortKey:   q.SortKey,
		SortDir:   q.Direction,
		PageSize:  pageSize,
		PageSizes: domain.PageSizes,
		Loading:   ps.Loading,
		Error:     ps.Error,
		UpdatedAt: timePtr(ps.UpdatedAt),
		Seq:       ps.Seq,
	}
}

func (m *Market) publish() {
	publish(m.bus, m.logger, domain.ChannelMarket, m.State())
}
