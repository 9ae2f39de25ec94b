// Package view computes the derived market projection: the snapshot filtered
// by a free-text query and ordered by one attribute.
package view

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"github.com/alanyoungcy/coindash/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Query is the user-controlled part of the projection.
type Query struct {
	Text      string
	SortKey   domain.SortKey
	Direction domain.SortDirection
}

// Compute returns the coins whose name or symbol contains q.Text, ordered by
// q.SortKey in q.Direction. It never modifies coins and always returns a new
// slice, so the same input tuple yields the same output.
func Compute(coins []domain.Coin, q Query) []domain.Coin {
	out := Filter(coins, q.Text)
	Sort(out, q.SortKey, q.Direction)
	return out
}

// Filter returns a copy of the coins whose name or symbol contains text,
// ignoring case and surrounding whitespace. An empty text keeps every coin.
func Filter(coins []domain.Coin, text string) []domain.Coin {
	needle := strings.ToLower(strings.TrimSpace(text))
	out := make([]domain.Coin, 0, len(coins))
	for _, c := range coins {
		if needle == "" ||
			strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.Symbol), needle) {
			out = append(out, c)
		}
	}
	return out
}

// Sort orders coins in place by key. The sort is stable: coins that compare
// equal keep their relative order in both directions. Descending negates the
// comparison, so for distinct values it is the exact reverse of ascending.
// Coins without a market cap rank sort after ranked coins ascending.
func Sort(coins []domain.Coin, key domain.SortKey, dir domain.SortDirection) {
	compare := comparator(key)
	sign := 1
	if dir == domain.Descending {
		sign = -1
	}
	sort.SliceStable(coins, func(i, j int) bool {
		return sign*compare(coins[i], coins[j]) < 0
	})
}

func comparator(key domain.SortKey) func(a, b domain.Coin) int {
	switch key {
	case domain.SortByPrice:
		return byFloat(func(c domain.Coin) float64 { return c.CurrentPrice })
	case domain.SortByMarketCap:
		return byFloat(func(c domain.Coin) float64 { return c.MarketCap })
	case domain.SortByPriceChange24h:
		return byFloat(func(c domain.Coin) float64 { return c.PriceChangePercentage24h })
	case domain.SortByVolume:
		return byFloat(func(c domain.Coin) float64 { return c.TotalVolume })
	case domain.SortByRank:
		return compareRank
	case domain.SortByID:
		return byString(func(c domain.Coin) string { return c.ID })
	case domain.SortBySymbol:
		return byString(func(c domain.Coin) string { return c.Symbol })
	case domain.SortByName:
		return byString(func(c domain.Coin) string { return c.Name })
	default:
		return func(domain.Coin, domain.Coin) int { return 0 }
	}
}

func byFloat(get func(domain.Coin) float64) func(a, b domain.Coin) int {
	return func(a, b domain.Coin) int {
		return cmp.Compare(get(a), get(b))
	}
}

// byString compares with English collation, matching how a browser's
// localeCompare orders names ("bitcoin" < "Bitcoin Cash" < "ether").
func byString(get func(domain.Coin) string) func(a, b domain.Coin) int {
	col := collate.New(language.English)
	return func(a, b domain.Coin) int {
		return col.CompareString(get(a), get(b))
	}
}

func compareRank(a, b domain.Coin) int {
	switch {
	case a.HasRank() && b.HasRank():
		return cmp.Compare(a.Rank(), b.Rank())
	case a.HasRank():
		return -1
	case b.HasRank():
		return 1
	default:
		return 0
	}
}

// ParseSortKey validates a sort key name.
func ParseSortKey(s string) (domain.SortKey, error) {
	k := domain.SortKey(strings.TrimSpace(s))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidValue, s)
	}
	return k, nil
}

// ParseDirection validates a sort direction.
func ParseDirection(s string) (domain.SortDirection, error) {
	d := domain.SortDirection(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: sort direction must be asc or desc, got %q", domain.ErrInvalidValue, s)
	}
	return d, nil
}

// ParsePageSize validates a page size against domain.PageSizes.
func ParsePageSize(n int) (int, error) {
	if !domain.ValidPageSize(n) {
		return 0, fmt.Errorf("%w: page size must be one of %v, got %d", domain.ErrInvalidValue, domain.PageSizes, n)
	}
	return n, nil
}
