package view

import (
	"errors"
	"testing"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rank(n int) *int { return &n }

func sampleCoins() []domain.Coin {
	return []domain.Coin{
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 3200, MarketCap: 380e9, MarketCapRank: rank(2), PriceChangePercentage24h: -1.2, TotalVolume: 15e9},
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 64000, MarketCap: 1.2e12, MarketCapRank: rank(1), PriceChangePercentage24h: 2.5, TotalVolume: 30e9},
		{ID: "tether", Symbol: "usdt", Name: "Tether", CurrentPrice: 1, MarketCap: 110e9, MarketCapRank: rank(3), PriceChangePercentage24h: 0.01, TotalVolume: 50e9},
		{ID: "wrapped-bitcoin", Symbol: "wbtc", Name: "Wrapped Bitcoin", CurrentPrice: 63900, MarketCap: 9e9, MarketCapRank: nil, PriceChangePercentage24h: 2.4, TotalVolume: 0.3e9},
		{ID: "solana", Symbol: "sol", Name: "Solana", CurrentPrice: 150, MarketCap: 70e9, MarketCapRank: rank(5), PriceChangePercentage24h: 4.1, TotalVolume: 3e9},
	}
}

func ids(coins []domain.Coin) []string {
	out := make([]string, len(coins))
	for i, c := range coins {
		out[i] = c.ID
	}
	return out
}

func TestComputeEmptyQueryIsPermutation(t *testing.T) {
	coins := sampleCoins()
	for _, key := range domain.SortKeys {
		for _, dir := range []domain.SortDirection{domain.Ascending, domain.Descending} {
			t.Run(string(key)+"/"+string(dir), func(t *testing.T) {
				out := Compute(coins, Query{SortKey: key, Direction: dir})
				assert.ElementsMatch(t, ids(coins), ids(out))
			})
		}
	}
}

func TestComputeFilter(t *testing.T) {
	coins := sampleCoins()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"name substring", "bit", []string{"bitcoin", "wrapped-bitcoin"}},
		{"case insensitive", "BITCOIN", []string{"bitcoin", "wrapped-bitcoin"}},
		{"symbol", "usdt", []string{"tether"}},
		{"surrounding whitespace", "  sol ", []string{"solana"}},
		{"symbol substring", "th", []string{"ethereum", "tether"}},
		{"no match", "doge", []string{}},
		{"blank", "   ", []string{"bitcoin", "ethereum", "tether", "solana", "wrapped-bitcoin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Compute(coins, Query{Text: tt.query, SortKey: domain.SortByRank, Direction: domain.Ascending})
			assert.ElementsMatch(t, tt.want, ids(out))
			for _, c := range out {
				assert.True(t, matches(c, tt.query), "%s should match %q", c.ID, tt.query)
			}
		})
	}
}

func matches(c domain.Coin, q string) bool {
	return len(Filter([]domain.Coin{c}, q)) == 1
}

func TestSortNumericDescendingIsExactReverse(t *testing.T) {
	coins := sampleCoins()
	for _, key := range []domain.SortKey{domain.SortByPrice, domain.SortByMarketCap, domain.SortByPriceChange24h, domain.SortByVolume} {
		t.Run(string(key), func(t *testing.T) {
			asc := ids(Compute(coins, Query{SortKey: key, Direction: domain.Ascending}))
			desc := ids(Compute(coins, Query{SortKey: key, Direction: domain.Descending}))
			require.Len(t, desc, len(asc))
			for i := range asc {
				assert.Equal(t, asc[i], desc[len(desc)-1-i])
			}
		})
	}
}

func TestSortByPriceAscending(t *testing.T) {
	out := Compute(sampleCoins(), Query{SortKey: domain.SortByPrice, Direction: domain.Ascending})
	assert.Equal(t, []string{"tether", "solana", "ethereum", "wrapped-bitcoin", "bitcoin"}, ids(out))
}

func TestSortRankPutsUnrankedLast(t *testing.T) {
	out := Compute(sampleCoins(), Query{SortKey: domain.SortByRank, Direction: domain.Ascending})
	assert.Equal(t, []string{"bitcoin", "ethereum", "tether", "solana", "wrapped-bitcoin"}, ids(out))

	out = Compute(sampleCoins(), Query{SortKey: domain.SortByRank, Direction: domain.Descending})
	assert.Equal(t, "wrapped-bitcoin", out[0].ID)
	assert.Equal(t, "bitcoin", out[len(out)-1].ID)
}

func TestSortIsStable(t *testing.T) {
	coins := []domain.Coin{
		{ID: "a", Name: "A", CurrentPrice: 1},
		{ID: "b", Name: "B", CurrentPrice: 2},
		{ID: "c", Name: "C", CurrentPrice: 1},
		{ID: "d", Name: "D", CurrentPrice: 2},
	}

	asc := Compute(coins, Query{SortKey: domain.SortByPrice, Direction: domain.Ascending})
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids(asc))

	desc := Compute(coins, Query{SortKey: domain.SortByPrice, Direction: domain.Descending})
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(desc))
}

func TestSortStringKeysUseCollation(t *testing.T) {
	coins := []domain.Coin{
		{ID: "3", Name: "zcash"},
		{ID: "1", Name: "Ápple"},
		{ID: "2", Name: "banana"},
		{ID: "0", Name: "apple"},
	}
	out := Compute(coins, Query{SortKey: domain.SortByName, Direction: domain.Ascending})

	names := make([]string, len(out))
	for i, c := range out {
		names[i] = c.Name
	}
	// Accented and capitalised variants sort next to their base letter rather
	// than after every ASCII name.
	assert.Equal(t, "zcash", names[3])
	assert.Equal(t, "banana", names[2])
	assert.ElementsMatch(t, []string{"apple", "Ápple"}, names[:2])
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	coins := sampleCoins()
	before := ids(coins)

	_ = Compute(coins, Query{SortKey: domain.SortByPrice, Direction: domain.Descending})
	_ = Compute(coins, Query{Text: "bit", SortKey: domain.SortByName, Direction: domain.Ascending})

	assert.Equal(t, before, ids(coins))
}

func TestComputeIsIdempotent(t *testing.T) {
	coins := sampleCoins()
	q := Query{Text: "t", SortKey: domain.SortByVolume, Direction: domain.Descending}
	assert.Equal(t, Compute(coins, q), Compute(coins, q))
}

func TestParsers(t *testing.T) {
	k, err := ParseSortKey(" current_price ")
	require.NoError(t, err)
	assert.Equal(t, domain.SortByPrice, k)

	_, err = ParseSortKey("price")
	assert.True(t, errors.Is(err, domain.ErrInvalidValue))

	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, domain.Descending, d)

	_, err = ParseDirection("up")
	assert.True(t, errors.Is(err, domain.ErrInvalidValue))

	for _, n := range domain.PageSizes {
		got, err := ParsePageSize(n)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
	_, err = ParsePageSize(20)
	assert.True(t, errors.Is(err, domain.ErrInvalidValue))
}
