package view

import (
	"strings"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	billion = decimal.NewFromInt(1_000_000_000)
	million = decimal.NewFromInt(1_000_000)
)

// Row is a projected coin together with its display strings.
type Row struct {
	domain.Coin
	SymbolDisplay    string `json:"symbol_display"`
	PriceDisplay     string `json:"price_display"`
	MarketCapDisplay string `json:"market_cap_display"`
	VolumeDisplay    string `json:"volume_display"`
	ChangeDisplay    string `json:"change_display"`
}

// Rows decorates a projection with display strings.
func Rows(coins []domain.Coin) []Row {
	rows := make([]Row, 0, len(coins))
	for _, c := range coins {
		rows = append(rows, Row{
			Coin:             c,
			SymbolDisplay:    strings.ToUpper(c.Symbol),
			PriceDisplay:     FormatMoney(c.CurrentPrice),
			MarketCapDisplay: FormatBig(c.MarketCap),
			VolumeDisplay:    FormatBig(c.TotalVolume),
			ChangeDisplay:    FormatPercent(c.PriceChangePercentage24h),
		})
	}
	return rows
}

// FormatMoney renders v with two decimals and grouped thousands, e.g.
// 64321.5 -> "64,321.50".
func FormatMoney(v float64) string {
	return group(decimal.NewFromFloat(v).StringFixed(2))
}

// FormatBig abbreviates billions and millions with two decimals ("1.23B",
// "45.60M") and groups smaller values ("987,654.321").
func FormatBig(v float64) string {
	d := decimal.NewFromFloat(v)
	switch abs := d.Abs(); {
	case abs.GreaterThanOrEqual(billion):
		return d.Div(billion).StringFixed(2) + "B"
	case abs.GreaterThanOrEqual(million):
		return d.Div(million).StringFixed(2) + "M"
	default:
		return group(d.Round(3).String())
	}
}

// FormatPercent renders a signed percentage with two decimals, e.g. "+1.25%".
func FormatPercent(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s + "%"
}

// group inserts thousands separators into the integer part of a decimal
// string.
func group(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}
