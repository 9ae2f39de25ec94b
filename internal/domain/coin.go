package domain

// Coin is a single market record as returned by the market data source.
// Records are produced wholesale on every poll and never mutated afterwards.
type Coin struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	MarketCapRank            *int    `json:"market_cap_rank"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	TotalVolume              float64 `json:"total_volume"`
}

// HasRank reports whether the record carries a market cap rank.
func (c Coin) HasRank() bool {
	return c.MarketCapRank != nil
}

// Rank returns the market cap rank, or 0 when absent.
func (c Coin) Rank() int {
	if c.MarketCapRank == nil {
		return 0
	}
	return *c.MarketCapRank
}

// SortKey names a Coin attribute the market projection can be ordered by.
type SortKey string

const (
	SortByID             SortKey = "id"
	SortBySymbol         SortKey = "symbol"
	SortByName           SortKey = "name"
	SortByPrice          SortKey = "current_price"
	SortByMarketCap      SortKey = "market_cap"
	SortByRank           SortKey = "market_cap_rank"
	SortByPriceChange24h SortKey = "price_change_percentage_24h"
	SortByVolume         SortKey = "total_volume"
)

// SortKeys lists every valid SortKey.
var SortKeys = []SortKey{
	SortByID, SortBySymbol, SortByName, SortByPrice,
	SortByMarketCap, SortByRank, SortByPriceChange24h, SortByVolume,
}

// Valid reports whether k is one of SortKeys.
func (k SortKey) Valid() bool {
	for _, v := range SortKeys {
		if v == k {
			return true
		}
	}
	return false
}

// SortDirection orders the projection ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Valid reports whether d is asc or desc.
func (d SortDirection) Valid() bool {
	return d == Ascending || d == Descending
}

// PageSizes enumerates the page sizes the market dashboard may request.
var PageSizes = []int{10, 25, 50, 100, 250}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, p := range PageSizes {
		if p == n {
			return true
		}
	}
	return false
}
