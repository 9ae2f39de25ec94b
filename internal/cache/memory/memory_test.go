package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterStore(t *testing.T) {
	ctx := context.Background()
	s := NewCounterStore()

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Add(ctx, 1)
		}()
	}
	wg.Wait()

	total, err = s.Add(ctx, -40)
	require.NoError(t, err)
	assert.Equal(t, int64(60), total)
}

func TestCounterStoreRefusesOverflow(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		start int64
		delta int64
	}{
		{"past max", math.MaxInt64, 1},
		{"past min", math.MinInt64, -1},
		{"large positive", math.MaxInt64 - 5, 10},
		{"large negative", math.MinInt64 + 5, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewCounterStore()
			_, err := s.Add(ctx, tt.start)
			require.NoError(t, err)

			_, err = s.Add(ctx, tt.delta)
			assert.True(t, errors.Is(err, domain.ErrInvalidValue))

			total, err := s.Total(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.start, total)
		})
	}
}

func TestSignalBusFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewSignalBus()

	a, err := b.Subscribe(ctx, "market")
	require.NoError(t, err)
	c, err := b.Subscribe(ctx, "market")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "counter")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "market", []byte("hello")))

	for _, ch := range []<-chan []byte{a, c} {
		select {
		case msg := <-ch:
			assert.Equal(t, "hello", string(msg))
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive message")
		}
	}
	select {
	case msg := <-other:
		t.Fatalf("unexpected message on counter: %s", msg)
	default:
	}
}

func TestSignalBusUnsubscribeOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewSignalBus()

	ch, err := b.Subscribe(ctx, "market")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.NoError(t, b.Publish(context.Background(), "market", []byte("x")))
}

func TestSignalBusPublishNeverBlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewSignalBus()
	_, err := b.Subscribe(ctx, "market")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			_ = b.Publish(ctx, "market", []byte("x"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
