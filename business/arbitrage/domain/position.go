package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
)

// PositionState is the lifecycle stage of a position.
type PositionState string

const (
	StateNone    PositionState = "NONE"
	StateOpening PositionState = "OPENING"
	StateOpen    PositionState = "OPEN"
	StateClosing PositionState = "CLOSING"
	StateClosed  PositionState = "CLOSED"
)

var transitions = map[PositionState][]PositionState{
	StateNone:    {StateOpening},
	StateOpening: {StateOpen, StateNone},
	StateOpen:    {StateClosing},
	StateClosing: {StateClosed},
	StateClosed:  {StateNone},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to PositionState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Active reports whether the state blocks a new position on the same token.
func (s PositionState) Active() bool {
	return s == StateOpening || s == StateOpen || s == StateClosing
}

// Position is an open round trip on one token.
type Position struct {
	TokenAddress common.Address      `json:"tokenAddress"`
	Symbol       string              `json:"symbol"`
	BuyVenue     pricingDomain.Venue `json:"buyVenue"`
	SellVenue    pricingDomain.Venue `json:"sellVenue"`

	// AmountIn is the raw trade size resolved before the open leg and reused for the close.
	AmountIn       *big.Int `json:"amountIn"`
	AmountDecimals uint8    `json:"amountDecimals"`

	// BuyPrice is the USD value of the whole traded amount at open.
	BuyPrice       decimal.Decimal `json:"buyPrice"`
	BuyTxHash      common.Hash     `json:"buyTxHash"`
	BuyBlockNumber uint64          `json:"buyBlockNumber"`
	OpenedAt       time.Time       `json:"openedAt"`

	// PriceHigh is the scan-time sell-side price, used as the last fallback.
	PriceHigh decimal.Decimal `json:"priceHigh"`
	// LastSellPrice is the most recent monitored unit price on the sell venue.
	LastSellPrice decimal.Decimal `json:"lastSellPrice"`

	State PositionState `json:"state"`
}

// Amount returns the traded amount in whole units.
func (p *Position) Amount() decimal.Decimal {
	if p.AmountIn == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.AmountIn, -int32(p.AmountDecimals))
}

// Token returns the token this position trades.
func (p *Position) Token() pricingDomain.Token {
	return pricingDomain.Token{Symbol: p.Symbol, Address: p.TokenAddress}
}

// ValueAt returns unit price times the traded amount.
func (p *Position) ValueAt(unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(p.Amount())
}

// ProfitPercent returns (unitPrice*amount - BuyPrice) / BuyPrice * 100.
func (p *Position) ProfitPercent(unitPrice decimal.Decimal) decimal.Decimal {
	if p.BuyPrice.IsZero() {
		return decimal.Zero
	}
	return p.ValueAt(unitPrice).Sub(p.BuyPrice).Div(p.BuyPrice).Mul(decimal.NewFromInt(100))
}

// Clone returns a deep copy safe to hand outside the book.
func (p *Position) Clone() *Position {
	c := *p
	if p.AmountIn != nil {
		c.AmountIn = new(big.Int).Set(p.AmountIn)
	}
	return &c
}
