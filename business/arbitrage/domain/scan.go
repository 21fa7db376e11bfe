package domain

import (
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
)

// ScanRow is the per-token outcome of a scan.
type ScanRow struct {
	Token     pricingDomain.Token
	SushiSwap pricingDomain.Quote
	Uniswap   pricingDomain.Quote
	// NetPercent is only meaningful when both quotes are available.
	NetPercent decimal.Decimal
	Qualified  bool
}

// Complete reports whether both venue quotes were available.
func (r ScanRow) Complete() bool {
	return r.SushiSwap.Available && r.Uniswap.Available
}

// ScanSnapshot summarizes one scan for reporting.
type ScanSnapshot struct {
	StartedAt     time.Time
	Duration      time.Duration
	Rows          []ScanRow
	Opportunities []*Opportunity
}
