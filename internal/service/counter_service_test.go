package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/alanyoungcy/coindash/internal/cache/memory"
	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(policy InvalidPolicy) *CounterService {
	return NewCounterService(memory.NewCounterStore(), policy, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAddAccumulates(t *testing.T) {
	ctx := context.Background()
	svc := newService(PolicyCoerce)

	res, err := svc.AddBody(ctx, []byte(`{"value": 5}`))
	require.NoError(t, err)
	assert.Equal(t, AddResult{Message: "Coin added", Total: 5}, res)

	res, err = svc.AddBody(ctx, []byte(`{"value": 5}`))
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Total)

	total, err := svc.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

func TestCoinCounterScenario(t *testing.T) {
	ctx := context.Background()
	svc := newService(PolicyCoerce)

	total, err := svc.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	res, err := svc.AddBody(ctx, []byte(`{"value":1}`))
	require.NoError(t, err)
	assert.Equal(t, AddResult{Message: "Coin added", Total: 1}, res)

	res, err = svc.AddBody(ctx, []byte(`{"value":10}`))
	require.NoError(t, err)
	assert.Equal(t, AddResult{Message: "Coin added", Total: 11}, res)

	total, err = svc.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
}

func TestInvalidValueCoerced(t *testing.T) {
	ctx := context.Background()
	svc := newService(PolicyCoerce)
	_, err := svc.Add(ctx, 3)
	require.NoError(t, err)

	bodies := []string{
		`{"value": "abc"}`,
		`{"value": null}`,
		`{}`,
		`{"value": true}`,
		`{"value": 1.5}`,
		`{"value": [1]}`,
		`not json`,
		``,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			res, err := svc.AddBody(ctx, []byte(body))
			require.NoError(t, err)
			assert.Equal(t, int64(3), res.Total)
			assert.Equal(t, "Coin added", res.Message)
		})
	}
}

func TestInvalidValueRejected(t *testing.T) {
	ctx := context.Background()
	svc := newService(PolicyReject)
	_, err := svc.Add(ctx, 3)
	require.NoError(t, err)

	for _, body := range []string{`{"value": "abc"}`, `{"value": false}`, `{"value": 2.25}`, `{`} {
		t.Run(body, func(t *testing.T) {
			_, err := svc.AddBody(ctx, []byte(body))
			assert.True(t, errors.Is(err, domain.ErrInvalidValue))

			total, err := svc.Total(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)
		})
	}
}

func TestOverflowFollowsInvalidPolicy(t *testing.T) {
	ctx := context.Background()
	maxBody := []byte(`{"value": 9223372036854775807}`)

	t.Run("coerce", func(t *testing.T) {
		svc := newService(PolicyCoerce)
		_, err := svc.AddBody(ctx, maxBody)
		require.NoError(t, err)

		res, err := svc.AddBody(ctx, []byte(`{"value": 1}`))
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), res.Total)
	})

	t.Run("reject", func(t *testing.T) {
		svc := newService(PolicyReject)
		_, err := svc.AddBody(ctx, maxBody)
		require.NoError(t, err)

		_, err = svc.AddBody(ctx, []byte(`{"value": 1}`))
		assert.True(t, errors.Is(err, domain.ErrInvalidValue))

		total, err := svc.Total(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), total)
	})
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (f failingStore) Total(context.Context) (int64, error) {
	return 0, f.err
}

func (f failingStore) Add(context.Context, int64) (int64, error) {
	return 0, f.err
}

func TestStoreFailureIsNotCoerced(t *testing.T) {
	down := errors.New("connection refused")
	svc := NewCounterService(failingStore{err: down}, PolicyCoerce, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.AddBody(context.Background(), []byte(`{"value": 1}`))
	assert.True(t, errors.Is(err, down))
	assert.False(t, errors.Is(err, domain.ErrInvalidValue))
}

func TestParseValue(t *testing.T) {
	valid := map[string]int64{
		`5`:         5,
		`-7`:        -7,
		`0`:         0,
		`"12"`:      12,
		`" 12 "`:    12,
		`""`:        0,
		`1e3`:       1000,
		`"1e2"`:     100,
		`2.0`:       2,
		`"-3"`:      -3,
		`100000000`: 100000000,
	}

	for raw, want := range valid {
		got, err := ParseValue(json.RawMessage(raw))
		if assert.NoError(t, err, raw) {
			assert.Equal(t, want, got, raw)
		}
	}

	invalid := []string{``, `null`, `true`, `"abc"`, `1.5`, `"NaN"`, `"Infinity"`, `1e300`, `{}`, `[]`, `"12abc"`, `"0x10"`}
	for _, raw := range invalid {
		_, err := ParseValue(json.RawMessage(raw))
		assert.True(t, errors.Is(err, domain.ErrInvalidValue), "%s should be invalid", raw)
	}
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	ctx := context.Background()
	svc := newService(PolicyCoerce)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddBody(ctx, []byte(`{"value": 2}`))
		}()
	}
	wg.Wait()

	total, err := svc.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)
}

func TestCustomMessageAndUnknownPolicy(t *testing.T) {
	svc := NewCounterService(memory.NewCounterStore(), "lenient", "ok", slog.New(slog.NewTextHandler(io.Discard, nil)))
	res, err := svc.AddBody(context.Background(), []byte(`{"value":"x"}`))
	require.NoError(t, err, "unknown policies fall back to coerce")
	assert.Equal(t, "ok", res.Message)
}
