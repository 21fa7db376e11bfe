// Package domain contains the core domain types for the execution context.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
)

// Direction is the leg of a round trip.
type Direction string

const (
	// DirectionOpen swaps token → WETH on the buy venue.
	DirectionOpen Direction = "open"
	// DirectionClose swaps WETH → token on the sell venue.
	DirectionClose Direction = "close"
)

// TradeRequest describes one swap.
type TradeRequest struct {
	Venue     pricingDomain.Venue
	Token     common.Address
	Symbol    string
	Direction Direction
	AmountIn  *big.Int
	// ExpectedPriceUSD is informational; slippage bounds come from the router quote.
	ExpectedPriceUSD decimal.Decimal
}

// Path returns the two-hop swap path for the request.
func (r TradeRequest) Path(weth common.Address) []common.Address {
	if r.Direction == DirectionOpen {
		return []common.Address{r.Token, weth}
	}
	return []common.Address{weth, r.Token}
}

// TradeResult is the uniform outcome of an execution attempt. When Confirmed
// is false, Err explains why and TxHash may still identify a submitted
// transaction that could confirm later.
type TradeResult struct {
	Confirmed     bool
	TxHash        common.Hash
	BlockNumber   uint64
	Confirmations uint64
	GasUsed       uint64
	MinAmountOut  *big.Int
	Err           error
}

// Submitted reports whether a transaction reached the mempool.
func (r TradeResult) Submitted() bool {
	return r.TxHash != (common.Hash{})
}

// Failed builds an unconfirmed result.
func Failed(txHash common.Hash, err error) TradeResult {
	return TradeResult{TxHash: txHash, Err: err}
}

const bpsDenominator = 10_000

// MinAmountOut applies a slippage tolerance in basis points to a quoted
// output, rounding down. Tolerances outside [0, 10000] are clamped.
func MinAmountOut(quoted *big.Int, bps int64) *big.Int {
	if quoted == nil || quoted.Sign() <= 0 {
		return big.NewInt(0)
	}
	bps = max(0, min(bps, bpsDenominator))
	out := new(big.Int).Mul(quoted, big.NewInt(bpsDenominator-bps))
	return out.Quo(out, big.NewInt(bpsDenominator))
}
