package coingecko

import "github.com/alanyoungcy/coindash/internal/domain"

// APICoin is one element of the /coins/markets response. Numeric fields are
// pointers because the API reports missing data as null.
type APICoin struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	Image                    string   `json:"image"`
	CurrentPrice             *float64 `json:"current_price"`
	MarketCap                *float64 `json:"market_cap"`
	MarketCapRank            *int     `json:"market_cap_rank"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	TotalVolume              *float64 `json:"total_volume"`
}

// ToDomainCoin converts an APICoin to a domain.Coin. Null numbers become
// zero; a null or non-positive rank stays absent.
func (a APICoin) ToDomainCoin() domain.Coin {
	c := domain.Coin{
		ID:                       a.ID,
		Symbol:                   a.Symbol,
		Name:                     a.Name,
		Image:                    a.Image,
		CurrentPrice:             deref(a.CurrentPrice),
		MarketCap:                deref(a.MarketCap),
		PriceChangePercentage24h: deref(a.PriceChangePercentage24h),
		TotalVolume:              deref(a.TotalVolume),
	}
	if a.MarketCapRank != nil && *a.MarketCapRank > 0 {
		rank := *a.MarketCapRank
		c.MarketCapRank = &rank
	}
	return c
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
