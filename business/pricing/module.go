// Package pricing implements the pricing bounded context for per-venue USD quotes.
package pricing

import (
	"context"

	"github.com/fd1az/dex-arbitrage-bot/business/pricing/app"
	pricingDI "github.com/fd1az/dex-arbitrage-bot/business/pricing/di"
	"github.com/fd1az/dex-arbitrage-bot/business/pricing/infra/moralis"
	"github.com/fd1az/dex-arbitrage-bot/business/pricing/infra/subgraph"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/di"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
	"github.com/fd1az/dex-arbitrage-bot/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register TokenPriceSource (Moralis) - private dependency
	di.RegisterToken(c, pricingDI.TokenPriceSource, func(sr di.ServiceRegistry) app.TokenPriceSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := moralis.NewClient(moralis.ConfigFrom(cfg.Pricing), log)
		if err != nil {
			panic("failed to create moralis client: " + err.Error())
		}
		return client
	})

	// Register PairPriceSource (SushiSwap subgraph) - private dependency
	di.RegisterToken(c, pricingDI.PairPriceSource, func(sr di.ServiceRegistry) app.PairPriceSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := subgraph.NewClient(subgraph.ConfigFrom(cfg.Pricing), log)
		if err != nil {
			panic("failed to create subgraph client: " + err.Error())
		}
		return client
	})

	// Register PriceOracle (public - the scanner and lifecycle quote through it)
	di.RegisterToken(c, pricingDI.PriceOracle, func(sr di.ServiceRegistry) *app.Oracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := app.NewOracle(
			app.OracleConfigFrom(cfg.Pricing),
			pricingDI.GetTokenPriceSource(sr),
			pricingDI.GetPairPriceSource(sr),
			log,
		)
		if err != nil {
			panic("failed to create price oracle: " + err.Error())
		}
		return oracle
	})

	return nil
}

// Startup fetches the WETH reference price once. A price API that cannot
// answer at startup is fatal.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	oracle := pricingDI.GetPriceOracle(mono.Services())
	mono.OnClose(oracle.Close)

	weth, err := oracle.WETHPrice(ctx)
	if err != nil {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("price oracle cannot initialize"))
	}

	log.Info(ctx, "pricing module started", "weth_usd", weth.String())
	return nil
}
