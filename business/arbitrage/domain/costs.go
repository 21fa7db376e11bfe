// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Thresholds holds the fixed economics of the strategy.
type Thresholds struct {
	// TransactionCostPercent is subtracted from the gross spread.
	TransactionCostPercent decimal.Decimal
	// MinNetProfitPercent must be strictly exceeded to open.
	MinNetProfitPercent decimal.Decimal
	// CloseProfitPercent closes a position once reached.
	CloseProfitPercent decimal.Decimal
	// MaxHold closes a position unconditionally once elapsed.
	MaxHold time.Duration
}

// DefaultThresholds returns 1% cost, 3% entry, 3% exit, 60 minute hold.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TransactionCostPercent: decimal.NewFromInt(1),
		MinNetProfitPercent:    decimal.NewFromInt(3),
		CloseProfitPercent:     decimal.NewFromInt(3),
		MaxHold:                60 * time.Minute,
	}
}
