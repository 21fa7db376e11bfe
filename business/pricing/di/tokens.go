// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/dex-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PriceOracle = di.NewToken[*app.Oracle]("pricing.PriceOracle")
)

// Private dependency tokens - internal to pricing module
var (
	TokenPriceSource = di.NewToken[app.TokenPriceSource]("pricing:tokenPriceSource")
	PairPriceSource  = di.NewToken[app.PairPriceSource]("pricing:pairPriceSource")
)

// Helper functions for type-safe access
func GetPriceOracle(c di.ServiceRegistry) *app.Oracle {
	return di.GetToken(c, PriceOracle)
}

func GetTokenPriceSource(c di.ServiceRegistry) app.TokenPriceSource {
	return di.GetToken(c, TokenPriceSource)
}

func GetPairPriceSource(c di.ServiceRegistry) app.PairPriceSource {
	return di.GetToken(c, PairPriceSource)
}
