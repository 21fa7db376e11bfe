package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Spread is the divergence between the two venue quotes of one token.
type Spread struct {
	LowVenue  Venue
	HighVenue Venue
	PriceLow  decimal.Decimal
	PriceHigh decimal.Decimal
	// Percent is |a-b| / mean(a,b) * 100.
	Percent decimal.Decimal
}

// ArbitragePercent returns |a-b| / ((a+b)/2) * 100. It is symmetric in its arguments.
func ArbitragePercent(a, b decimal.Decimal) decimal.Decimal {
	mean := a.Add(b).Div(decimal.NewFromInt(2))
	if mean.IsZero() {
		return decimal.Zero
	}
	return a.Sub(b).Abs().Div(mean).Mul(hundred)
}

// CalculateSpread compares two quotes of the same token. It returns false
// when either side is unavailable.
func CalculateSpread(a, b Quote) (Spread, bool) {
	if !a.Available || !b.Available {
		return Spread{}, false
	}

	low, high := a, b
	if b.USDPrice.LessThan(a.USDPrice) {
		low, high = b, a
	}

	return Spread{
		LowVenue:  low.Venue,
		HighVenue: high.Venue,
		PriceLow:  low.USDPrice,
		PriceHigh: high.USDPrice,
		Percent:   ArbitragePercent(a.USDPrice, b.USDPrice),
	}, true
}
