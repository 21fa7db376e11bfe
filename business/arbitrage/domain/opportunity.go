package domain

import (
	"time"

	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/shopspring/decimal"
)

// Opportunity is a token whose venue spread clears the entry threshold.
// It is only valid for the scan that produced it.
type Opportunity struct {
	Token               pricingDomain.Token
	LowVenue            pricingDomain.Venue
	HighVenue           pricingDomain.Venue
	PriceLow            decimal.Decimal
	PriceHigh           decimal.Decimal
	ArbitragePercent    decimal.Decimal
	NetArbitragePercent decimal.Decimal
	ScannedAt           time.Time
}

// Direction returns the buy/sell assignment.
func (o *Opportunity) Direction() Direction {
	return Direction{Buy: o.LowVenue, Sell: o.HighVenue}
}

// EvaluateOpportunity scores both venue quotes of one token. It returns nil
// unless the net spread is strictly greater than the minimum. No rounding is
// applied.
func EvaluateOpportunity(token pricingDomain.Token, a, b pricingDomain.Quote, th Thresholds, now time.Time) *Opportunity {
	spread, ok := pricingDomain.CalculateSpread(a, b)
	if !ok {
		return nil
	}

	net := spread.Percent.Sub(th.TransactionCostPercent)
	if !net.GreaterThan(th.MinNetProfitPercent) {
		return nil
	}

	return &Opportunity{
		Token:               token,
		LowVenue:            spread.LowVenue,
		HighVenue:           spread.HighVenue,
		PriceLow:            spread.PriceLow,
		PriceHigh:           spread.PriceHigh,
		ArbitragePercent:    spread.Percent,
		NetArbitragePercent: net,
		ScannedAt:           now,
	}
}
