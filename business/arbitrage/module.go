// Package arbitrage implements the arbitrage bounded context: scanning both
// venues, holding positions and settling them to the trade ledger.
package arbitrage

import (
	"context"
	"errors"
	"time"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/dex-arbitrage-bot/business/arbitrage/di"
	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/infra"
	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/infra/ledger"
	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/infra/pending"
	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/infra/tokenlist"
	blockchainDI "github.com/fd1az/dex-arbitrage-bot/business/blockchain/di"
	blockchainDomain "github.com/fd1az/dex-arbitrage-bot/business/blockchain/domain"
	executionDI "github.com/fd1az/dex-arbitrage-bot/business/execution/di"
	pricingDI "github.com/fd1az/dex-arbitrage-bot/business/pricing/di"
	reportingDI "github.com/fd1az/dex-arbitrage-bot/business/reporting/di"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/di"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
	"github.com/fd1az/dex-arbitrage-bot/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// ThresholdsFrom maps the trading section of the application config.
func ThresholdsFrom(cfg config.TradingConfig) domain.Thresholds {
	return domain.Thresholds{
		TransactionCostPercent: cfg.TransactionCostDecimal(),
		MinNetProfitPercent:    cfg.MinNetProfitDecimal(),
		CloseProfitPercent:     cfg.CloseProfitThresholdDecimal(),
		MaxHold:                cfg.MaxHold,
	}
}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Clock (private)
	di.RegisterToken(c, arbitrageDI.Clock, func(sr di.ServiceRegistry) app.Clock {
		return app.SystemClock{}
	})

	// Register TokenSource (private - re-read every cycle)
	di.RegisterToken(c, arbitrageDI.TokenSource, func(sr di.ServiceRegistry) app.TokenSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return tokenlist.NewFile(cfg.Trading.TokenListPath, log)
	})

	// Register Ledger (public - the digest mails it)
	di.RegisterToken(c, arbitrageDI.Ledger, func(sr di.ServiceRegistry) *ledger.JSONFile {
		cfg := sr.Get("config").(*config.Config)

		l, err := ledger.NewJSONFile(cfg.Ledger.Path)
		if err != nil {
			panic("failed to open trade ledger: " + err.Error())
		}
		return l
	})

	// Register PendingStore (private)
	di.RegisterToken(c, arbitrageDI.PendingStore, func(sr di.ServiceRegistry) *pending.BadgerStore {
		cfg := sr.Get("config").(*config.Config)

		store, err := pending.Open(cfg.Ledger.PendingDir)
		if err != nil {
			panic("failed to open pending-close store: " + err.Error())
		}
		return store
	})

	// Register Reporter (public - TUI or console)
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.App.TUIMode {
			return infra.NewTUIReporter(cfg.Trading.MaxHold)
		}
		return infra.NewConsoleReporter()
	})

	// Register PositionBook (private)
	di.RegisterToken(c, arbitrageDI.PositionBook, func(sr di.ServiceRegistry) *app.PositionBook {
		return app.NewPositionBook()
	})

	// Register Scanner (private)
	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		scanner, err := app.NewScanner(
			pricingDI.GetPriceOracle(sr),
			ThresholdsFrom(cfg.Trading),
			cfg.Trading.ScanConcurrency,
			arbitrageDI.GetClock(sr),
			log,
		)
		if err != nil {
			panic("failed to create scanner: " + err.Error())
		}
		return scanner
	})

	// Register Manager (public)
	di.RegisterToken(c, arbitrageDI.Manager, func(sr di.ServiceRegistry) *app.Manager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		manager, err := app.NewManager(
			app.ManagerConfig{
				Thresholds:    ThresholdsFrom(cfg.Trading),
				CheckInterval: cfg.Trading.CheckInterval,
				TxDeadline:    cfg.Execution.Deadline,
				Confirmations: cfg.Execution.Confirmations,
			},
			app.ManagerDeps{
				Book:     arbitrageDI.GetPositionBook(sr),
				Oracle:   pricingDI.GetPriceOracle(sr),
				Executor: executionDI.GetExecutor(sr),
				Amounts:  executionDI.GetAmountResolver(sr),
				Ledger:   arbitrageDI.GetLedger(sr),
				Pending:  arbitrageDI.GetPendingStore(sr),
				Receipts: blockchainDI.GetChainClient(sr),
				Alerter:  reportingDI.GetAlerter(sr),
				Reporter: arbitrageDI.GetReporter(sr),
				Clock:    arbitrageDI.GetClock(sr),
				Logger:   log,
			},
		)
		if err != nil {
			panic("failed to create lifecycle manager: " + err.Error())
		}
		return manager
	})

	// Register Scheduler (public - main starts and stops it)
	di.RegisterToken(c, arbitrageDI.Scheduler, func(sr di.ServiceRegistry) *app.Scheduler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		scheduler, err := app.NewScheduler(
			arbitrageDI.GetTokenSource(sr),
			arbitrageDI.GetScanner(sr),
			arbitrageDI.GetManager(sr),
			arbitrageDI.GetReporter(sr),
			arbitrageDI.GetClock(sr),
			app.SchedulerConfig{CycleDelay: cfg.Trading.CycleDelay},
			log,
		)
		if err != nil {
			panic("failed to create scheduler: " + err.Error())
		}
		return scheduler
	})

	return nil
}

// Startup opens the stores, registers health checks and forwards chain heads
// to the reporter. The scheduler itself is started by main.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	sr := mono.Services()

	store := arbitrageDI.GetPendingStore(sr)
	mono.OnClose(store.Close)

	ledgerFile := arbitrageDI.GetLedger(sr)
	mono.Health().RegisterCheck("ledger", ledgerFile.Check)
	mono.Health().RegisterCheck("pending_closes", store.Check)

	manager := arbitrageDI.GetManager(sr)
	reporter := arbitrageDI.GetReporter(sr)

	if n, err := manager.PendingCount(ctx); err != nil {
		log.Warn(ctx, "pending-close store unreadable", "error", err)
	} else {
		reporter.ReportPendingCloses(n)
		if n > 0 {
			log.Warn(ctx, "positions awaiting close from a previous run", "count", n)
		}
	}

	chain := blockchainDI.GetBlockchainService(sr)
	oracle := pricingDI.GetPriceOracle(sr)
	go func() {
		err := chain.Watch(ctx, func(b *blockchainDomain.Block, gp *blockchainDomain.GasPrice) {
			gwei := 0.0
			if gp != nil {
				gwei = gp.Gwei
			}
			reporter.ReportBlock(b.Number, gwei)
			reporter.UpdateConnectionStatus("Polygon", chain.ConnectionState() == blockchainDomain.StateConnected, 0)

			// Served from cache until the WETH price TTL expires.
			start := time.Now()
			_, err := oracle.WETHPrice(ctx)
			reporter.UpdateConnectionStatus("Moralis", err == nil, time.Since(start))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error(ctx, "block watcher stopped", "error", err)
		}
	}()

	log.Info(ctx, "arbitrage module started",
		"token_list", mono.Config().Trading.TokenListPath,
		"ledger", ledgerFile.Path())
	return nil
}
