// Package blockchain implements the blockchain bounded context for Polygon access.
package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/dex-arbitrage-bot/business/blockchain/app"
	blockchainDI "github.com/fd1az/dex-arbitrage-bot/business/blockchain/di"
	"github.com/fd1az/dex-arbitrage-bot/business/blockchain/infra/ethereum"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/di"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
	"github.com/fd1az/dex-arbitrage-bot/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register ChainClient (public - every RPC call goes through its breaker)
	di.RegisterToken(c, blockchainDI.ChainClient, func(sr di.ServiceRegistry) app.ChainClient {
		raw := sr.Get("ethClient").(*ethclient.Client)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := ethereum.NewClient(raw, log)
		if err != nil {
			panic("failed to create chain client: " + err.Error())
		}
		return client
	})

	// Register BlockSubscriber (private - internal dependency)
	di.RegisterToken(c, blockchainDI.BlockSubscriber, func(sr di.ServiceRegistry) app.BlockSubscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		sub, err := ethereum.NewSubscriber(ethereum.SubscriberConfigFrom(cfg.Chain), blockchainDI.GetChainClient(sr), log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	// Register GasOracle (public - execution checks fees against it)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := ethereum.NewGasOracle(ethereum.GasOracleConfigFrom(cfg.Execution), blockchainDI.GetChainClient(sr), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewBlockchainService(
			blockchainDI.GetChainClient(sr),
			blockchainDI.GetBlockSubscriber(sr),
			blockchainDI.GetGasOracle(sr),
			log,
		)
	})

	return nil
}

// Startup verifies the node serves the configured chain and registers cleanup.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	client := blockchainDI.GetChainClient(mono.Services())

	chainID, err := client.ChainID(ctx)
	if err != nil {
		log.Error(ctx, "failed to read chain id", "error", err)
		return err
	}
	if chainID.Uint64() != cfg.Chain.ChainID {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("node serves chain %d, configured %d", chainID.Uint64(), cfg.Chain.ChainID)))
	}

	for _, svc := range []any{
		blockchainDI.GetBlockSubscriber(mono.Services()),
		blockchainDI.GetGasOracle(mono.Services()),
	} {
		if closer, ok := svc.(interface{ Close() error }); ok {
			mono.OnClose(closer.Close)
		}
	}

	mono.Health().RegisterCheck("chain", blockchainDI.GetBlockchainService(mono.Services()).Check)

	log.Info(ctx, "blockchain module started", "chain_id", chainID.Uint64())
	return nil
}
