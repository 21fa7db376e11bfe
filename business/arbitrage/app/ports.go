// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	executionDomain "github.com/fd1az/dex-arbitrage-bot/business/execution/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/asset"
)

// PriceOracle returns a venue quote, or an unavailable quote on any failure.
type PriceOracle interface {
	Quote(ctx context.Context, token pricingDomain.Token, venue pricingDomain.Venue) pricingDomain.Quote
}

// TradeExecutor submits one swap and waits for it to settle. It never panics
// and reports every failure through TradeResult.
type TradeExecutor interface {
	Execute(ctx context.Context, req executionDomain.TradeRequest) executionDomain.TradeResult
}

// ReceiptSource looks up an earlier close transaction before it is resubmitted.
// A transaction the node does not know yields ethereum.NotFound.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// AmountResolver resolves the trade size once per round trip.
type AmountResolver interface {
	Resolve(ctx context.Context) (asset.Amount, error)
}

// TokenSource loads the token universe for one cycle.
type TokenSource interface {
	Load(ctx context.Context) ([]pricingDomain.Token, error)
}

// Ledger is the append-only trade history.
type Ledger interface {
	Append(ctx context.Context, rec domain.TradeRecord) error
	All(ctx context.Context) ([]domain.TradeRecord, error)
}

// PendingCloseStore keeps positions whose close leg did not confirm.
type PendingCloseStore interface {
	Put(ctx context.Context, pc domain.PendingClose) error
	Get(ctx context.Context, token common.Address) (*domain.PendingClose, error)
	Delete(ctx context.Context, token common.Address) error
	List(ctx context.Context) ([]domain.PendingClose, error)
}

// Alerter delivers an out-of-band operator alert.
type Alerter interface {
	Alert(ctx context.Context, subject, body string) error
}

// Clock abstracts time so monitoring and cycle delays are testable.
type Clock interface {
	Now() time.Time
	// Wait blocks for d or until ctx is done, returning ctx.Err() in that case.
	Wait(ctx context.Context, d time.Duration) error
}

// Reporter defines the interface for displaying bot activity.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportScan publishes the outcome of one scan.
	ReportScan(snapshot *domain.ScanSnapshot)

	// ReportPosition publishes a position after each monitoring check.
	ReportPosition(pos *domain.Position, decision domain.CloseDecision)

	// ReportTrade publishes a settled round trip.
	ReportTrade(rec domain.TradeRecord)

	// ReportPendingCloses publishes the size of the pending-close backlog.
	ReportPendingCloses(count int)

	// ReportError publishes a non-fatal error.
	ReportError(err error)

	// ReportBlock publishes the chain head and current gas price.
	ReportBlock(number uint64, gasPriceGwei float64)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
