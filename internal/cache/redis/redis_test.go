package redis

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), ClientConfig{Addr: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), ClientConfig{Addr: addr, PoolSize: 1})
	assert.Error(t, err)
}

func TestClientPing(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, c.Ping(context.Background()))

	opts := ClientConfig{Addr: mr.Addr(), PoolSize: 3, TLSEnabled: true}.options()
	assert.Equal(t, 3, opts.PoolSize)
	require.NotNil(t, opts.TLSConfig)

	addr := mr.Addr()
	mr.Close()
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}

func TestCounterStore(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	s := NewCounterStore(c, "test:total")

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total, "missing key reads as zero")

	total, err = s.Add(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	total, err = s.Add(ctx, -8)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), total)

	v, err := mr.Get("test:total")
	require.NoError(t, err)
	assert.Equal(t, "-3", v)

	// A second store on the same key sees the same total.
	other := NewCounterStore(c, "test:total")
	total, err = other.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), total)
}

func TestCounterStoreNonIntegerKey(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, mr.Set("test:total", "abc"))

	_, err := NewCounterStore(c, "test:total").Total(context.Background())
	require.Error(t, err)

	// A corrupt stored total is a store fault, not a bad client value.
	var numErr *strconv.NumError
	assert.ErrorAs(t, err, &numErr)
	assert.False(t, errors.Is(err, domain.ErrInvalidValue))
}

func TestCounterStoreRefusesOverflow(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	s := NewCounterStore(c, "test:total")

	_, err := s.Add(ctx, math.MaxInt64)
	require.NoError(t, err)

	_, err = s.Add(ctx, 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidValue))

	v, err := mr.Get("test:total")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(math.MaxInt64, 10), v)
}

func TestSignalBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, _ := newTestClient(t)
	bus := NewSignalBus(c)

	ch, err := bus.Subscribe(ctx, "market")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "market", []byte(`{"type":"market"}`)))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"type":"market"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c)

	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "client", 3, time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	ok, err := rl.Allow(ctx, "client", 3, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "fourth request inside the window")

	ok, err = rl.Allow(ctx, "other", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "keys are limited independently")

	now = now.Add(1100 * time.Millisecond)
	ok, err = rl.Allow(ctx, "client", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "window has slid past the earlier requests")
}
