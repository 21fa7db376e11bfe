// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenPriceSource returns a token's USD price as aggregated by a price API.
// An empty exchange asks for the API's default aggregation.
type TokenPriceSource interface {
	TokenPrice(ctx context.Context, token common.Address, exchange string) (decimal.Decimal, error)
}

// PairPriceSource returns token0Price for the pool pairing token0 with token1,
// i.e. how many token0 one token1 buys.
type PairPriceSource interface {
	Token0Price(ctx context.Context, token0, token1 common.Address) (decimal.Decimal, error)
}
