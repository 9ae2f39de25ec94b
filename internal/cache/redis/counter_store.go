package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/redis/go-redis/v9"
)

// CounterStore implements domain.CounterStore on a single Redis string key.
// INCRBY is atomic on the server, so replicas sharing the key never lose
// updates. A missing key reads as zero.
type CounterStore struct {
	rdb *redis.Client
	key string
}

// NewCounterStore creates a CounterStore that keeps its total at key.
func NewCounterStore(c *Client, key string) *CounterStore {
	return &CounterStore{rdb: c.Underlying(), key: key}
}

// Total returns the current total.
func (s *CounterStore) Total(ctx context.Context) (int64, error) {
	n, err := s.rdb.Get(ctx, s.key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: get total %s: %w", s.key, err)
	}
	return n, nil
}

// Add atomically adds delta to the total and returns the new total.
func (s *CounterStore) Add(ctx context.Context, delta int64) (int64, error) {
	n, err := s.rdb.IncrBy(ctx, s.key, delta).Result()
	if err != nil {
		if isOverflow(err) {
			return 0, fmt.Errorf("redis: add %d to %s: %w: %v", delta, s.key, domain.ErrInvalidValue, err)
		}
		return 0, fmt.Errorf("redis: add total %s: %w", s.key, err)
	}
	return n, nil
}

// isOverflow reports whether err is the server refusing an INCRBY whose
// result does not fit in a 64-bit integer.
func isOverflow(err error) bool {
	var rerr redis.Error
	return errors.As(err, &rerr) && strings.Contains(rerr.Error(), "overflow")
}

// Compile-time interface check.
var _ domain.CounterStore = (*CounterStore)(nil)
