package domain

import "context"

// CounterStore holds the single process-wide total of the counter service.
// Implementations must serialize mutations so concurrent adds never lose
// updates.
type CounterStore interface {
	Total(ctx context.Context) (int64, error)
	Add(ctx context.Context, delta int64) (int64, error)
}
