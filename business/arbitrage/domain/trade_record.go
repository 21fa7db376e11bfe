package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one closed round trip. Records are append-only.
type TradeRecord struct {
	ID                     string          `json:"id"`
	TokenAddress           string          `json:"tokenAddress"`
	Symbol                 string          `json:"symbol"`
	Exchange               string          `json:"exchange"`
	BuyExchange            string          `json:"buyExchange"`
	BuyHash                string          `json:"buyHash"`
	SellHash               string          `json:"sellHash"`
	AmountTraded           decimal.Decimal `json:"amountTraded"`
	BuyPrice               decimal.Decimal `json:"buyPrice"`
	SellPrice              decimal.Decimal `json:"sellPrice"`
	ProfitOrLoss           decimal.Decimal `json:"profitOrLoss"`
	ProfitOrLossPercentage decimal.Decimal `json:"profitOrLossPercentage"`
	OpenTime               time.Time       `json:"openTime"`
	CloseTime              time.Time       `json:"closeTime"`
	CloseReason            CloseReason     `json:"closeReason"`
}

// NewTradeRecord settles a position at sellUnitPrice.
// profitOrLoss = sellUnitPrice*amount - BuyPrice.
func NewTradeRecord(id string, p *Position, sellHash string, sellUnitPrice decimal.Decimal, closedAt time.Time, reason CloseReason) TradeRecord {
	sellValue := p.ValueAt(sellUnitPrice)
	pnl := sellValue.Sub(p.BuyPrice)

	pct := decimal.Zero
	if !p.BuyPrice.IsZero() {
		pct = pnl.Div(p.BuyPrice).Mul(decimal.NewFromInt(100))
	}

	return TradeRecord{
		ID:                     id,
		TokenAddress:           p.TokenAddress.Hex(),
		Symbol:                 p.Symbol,
		Exchange:               p.SellVenue.DisplayName(),
		BuyExchange:            p.BuyVenue.DisplayName(),
		BuyHash:                p.BuyTxHash.Hex(),
		SellHash:               sellHash,
		AmountTraded:           p.Amount(),
		BuyPrice:               p.BuyPrice,
		SellPrice:              sellValue,
		ProfitOrLoss:           pnl,
		ProfitOrLossPercentage: pct,
		OpenTime:               p.OpenedAt.UTC(),
		CloseTime:              closedAt.UTC(),
		CloseReason:            reason,
	}
}

// IsProfit reports a strictly positive result.
func (r TradeRecord) IsProfit() bool {
	return r.ProfitOrLoss.IsPositive()
}
