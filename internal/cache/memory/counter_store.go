// Package memory implements domain cache interfaces in process memory for
// single-instance deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/alanyoungcy/coindash/internal/domain"
)

// CounterStore implements domain.CounterStore with an atomic integer. The
// total starts at zero and lives for the lifetime of the process.
type CounterStore struct {
	total atomic.Int64
}

// NewCounterStore creates a CounterStore with a total of zero.
func NewCounterStore() *CounterStore {
	return &CounterStore{}
}

// Total returns the current total.
func (s *CounterStore) Total(_ context.Context) (int64, error) {
	return s.total.Load(), nil
}

// Add atomically adds delta to the total and returns the new total. An add
// that would overflow int64 leaves the total unchanged and fails with
// domain.ErrInvalidValue.
func (s *CounterStore) Add(_ context.Context, delta int64) (int64, error) {
	for {
		cur := s.total.Load()
		next := cur + delta
		if (delta > 0 && next < cur) || (delta < 0 && next > cur) {
			return cur, fmt.Errorf("memory: add %d to %d: %w: total would overflow", delta, cur, domain.ErrInvalidValue)
		}
		if s.total.CompareAndSwap(cur, next) {
			return next, nil
		}
	}
}

// Compile-time interface check.
var _ domain.CounterStore = (*CounterStore)(nil)
