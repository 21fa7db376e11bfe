package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CloseReason records why a position was closed.
type CloseReason string

const (
	CloseReasonNone        CloseReason = ""
	CloseReasonTimeout     CloseReason = "timeout"
	CloseReasonProfit      CloseReason = "profit"
	CloseReasonInterrupted CloseReason = "interrupted"
)

// CloseDecision is the outcome of one monitoring check.
type CloseDecision struct {
	Close         bool
	Reason        CloseReason
	Elapsed       time.Duration
	ProfitPercent decimal.Decimal
	// PriceChecked is false when the timeout fired before any price was needed.
	PriceChecked bool
}

// CheckTimeout is the first half of a monitoring check. It needs no price.
func CheckTimeout(p *Position, now time.Time, th Thresholds) CloseDecision {
	elapsed := now.Sub(p.OpenedAt)
	if elapsed >= th.MaxHold {
		return CloseDecision{Close: true, Reason: CloseReasonTimeout, Elapsed: elapsed}
	}
	return CloseDecision{Elapsed: elapsed}
}

// EvaluateClose applies the close policy. The timeout takes precedence over
// profit; profit is only considered while elapsed < MaxHold. An unavailable
// price never closes on profit.
func EvaluateClose(p *Position, now time.Time, unitPrice decimal.Decimal, priceAvailable bool, th Thresholds) CloseDecision {
	d := CheckTimeout(p, now, th)
	if d.Close || !priceAvailable {
		return d
	}

	d.PriceChecked = true
	d.ProfitPercent = p.ProfitPercent(unitPrice)
	if d.ProfitPercent.GreaterThanOrEqual(th.CloseProfitPercent) {
		d.Close = true
		d.Reason = CloseReasonProfit
	}
	return d
}
