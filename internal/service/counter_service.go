// Package service holds the counter service's business rules on top of a
// domain.CounterStore.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/alanyoungcy/coindash/internal/domain"
)

// InvalidPolicy decides what an add request with a non-numeric value does.
type InvalidPolicy string

const (
	// PolicyCoerce treats an invalid value as 0: the request succeeds and the
	// total is unchanged.
	PolicyCoerce InvalidPolicy = "coerce"
	// PolicyReject fails the request with domain.ErrInvalidValue.
	PolicyReject InvalidPolicy = "reject"
)

// DefaultMessage is the message returned by a successful add.
const DefaultMessage = "Coin added"

// AddResult is the outcome of an add request.
type AddResult struct {
	Message string `json:"message"`
	Total   int64  `json:"total"`
}

// CounterService owns the single counter total.
type CounterService struct {
	store   domain.CounterStore
	policy  InvalidPolicy
	message string
	logger  *slog.Logger
}

// NewCounterService creates a CounterService over store.
func NewCounterService(store domain.CounterStore, policy InvalidPolicy, message string, logger *slog.Logger) *CounterService {
	if policy != PolicyReject {
		policy = PolicyCoerce
	}
	if message == "" {
		message = DefaultMessage
	}
	return &CounterService{
		store:   store,
		policy:  policy,
		message: message,
		logger:  logger.With(slog.String("component", "counter_service")),
	}
}

// Total returns the current total. It has no side effects.
func (s *CounterService) Total(ctx context.Context) (int64, error) {
	total, err := s.store.Total(ctx)
	if err != nil {
		return 0, fmt.Errorf("counter: total: %w", err)
	}
	return total, nil
}

// AddBody decodes an add request body of the form {"value": <number>} and
// adds the value to the total. A body that is not a JSON object, or whose
// value is not a whole number, is handled by the service's InvalidPolicy.
func (s *CounterService) AddBody(ctx context.Context, body []byte) (AddResult, error) {
	var req struct {
		Value json.RawMessage `json:"value"`
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return s.invalid(ctx, fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidValue, err))
		}
	}

	value, err := ParseValue(req.Value)
	if err != nil {
		return s.invalid(ctx, err)
	}
	return s.Add(ctx, value)
}

// Add adds value to the total. A value the store refuses as invalid, such as
// one that would overflow the total, is handled by the InvalidPolicy like any
// other invalid value.
func (s *CounterService) Add(ctx context.Context, value int64) (AddResult, error) {
	total, err := s.store.Add(ctx, value)
	if err != nil {
		err = fmt.Errorf("counter: add %d: %w", value, err)
		if errors.Is(err, domain.ErrInvalidValue) {
			return s.invalid(ctx, err)
		}
		return AddResult{}, err
	}
	s.logger.DebugContext(ctx, "counter updated",
		slog.Int64("value", value),
		slog.Int64("total", total),
	)
	return AddResult{Message: s.message, Total: total}, nil
}

func (s *CounterService) invalid(ctx context.Context, cause error) (AddResult, error) {
	if s.policy == PolicyReject {
		return AddResult{}, cause
	}
	s.logger.DebugContext(ctx, "coercing invalid value to 0", slog.String("reason", cause.Error()))
	total, err := s.Total(ctx)
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{Message: s.message, Total: total}, nil
}

// ParseValue converts the raw JSON "value" field to a whole number. Numbers
// and numeric strings are accepted ("5", " 12 ", "1e3", "" as 0); a missing
// value, null, booleans, objects, non-finite numbers, fractions and values
// outside the int64 range are rejected with domain.ErrInvalidValue.
func ParseValue(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: value is missing", domain.ErrInvalidValue)
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text = string(raw)
	default:
		return 0, fmt.Errorf("%w: value %s is not a number", domain.ErrInvalidValue, raw)
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: value %q is not a number", domain.ErrInvalidValue, text)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: value %q is not a whole number", domain.ErrInvalidValue, text)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: value %q is out of range", domain.ErrInvalidValue, text)
	}
	return int64(f), nil
}
