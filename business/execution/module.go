// Package execution implements the execution bounded context: swap
// submission and trade sizing.
package execution

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	blockchainDI "github.com/fd1az/dex-arbitrage-bot/business/blockchain/di"
	"github.com/fd1az/dex-arbitrage-bot/business/execution/app"
	executionDI "github.com/fd1az/dex-arbitrage-bot/business/execution/di"
	"github.com/fd1az/dex-arbitrage-bot/business/execution/infra/router"
	"github.com/fd1az/dex-arbitrage-bot/internal/asset"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/di"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
	"github.com/fd1az/dex-arbitrage-bot/internal/monolith"
	"github.com/fd1az/dex-arbitrage-bot/internal/wallet"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.Contracts, func(sr di.ServiceRegistry) app.Contracts {
		contracts, err := router.New(blockchainDI.GetChainClient(sr))
		if err != nil {
			panic("failed to create router contracts: " + err.Error())
		}
		return contracts
	})

	di.RegisterToken(c, executionDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		signer := sr.Get("signer").(*wallet.Signer)

		exec, err := app.NewExecutor(
			app.ExecutorConfigFrom(cfg),
			blockchainDI.GetChainClient(sr),
			executionDI.GetContracts(sr),
			signer,
			blockchainDI.GetGasOracle(sr),
			log,
		)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return exec
	})

	di.RegisterToken(c, executionDI.AmountResolver, func(sr di.ServiceRegistry) *app.BalanceResolver {
		cfg := sr.Get("config").(*config.Config)
		signer := sr.Get("signer").(*wallet.Signer)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		var base common.Address
		if cfg.Execution.BaseAsset != "" {
			base = common.HexToAddress(cfg.Execution.BaseAsset)
		}

		return app.NewBalanceResolver(
			blockchainDI.GetChainClient(sr),
			executionDI.GetContracts(sr),
			signer.Address(),
			cfg.Chain.ChainID,
			base,
			registry,
		)
	})

	return nil
}

// Startup resolves the trade size once so a misconfigured base asset fails
// at boot instead of on the first opportunity.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	amount, err := executionDI.GetAmountResolver(mono.Services()).Resolve(ctx)
	if err != nil {
		log.Error(ctx, "failed to read trading balance", "error", err)
		return err
	}

	log.Info(ctx, "execution module started",
		"account", mono.Signer().Address().Hex(),
		"trade_size", amount.String())
	return nil
}
