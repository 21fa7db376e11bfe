// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/infra/ledger"
	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/infra/pending"
	"github.com/fd1az/dex-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Scheduler = di.NewToken[*app.Scheduler]("arbitrage.Scheduler")
	Manager   = di.NewToken[*app.Manager]("arbitrage.Manager")
	Ledger    = di.NewToken[*ledger.JSONFile]("arbitrage.Ledger")
	Reporter  = di.NewToken[app.Reporter]("arbitrage.Reporter")
)

// Private dependency tokens - internal to arbitrage module
var (
	Scanner      = di.NewToken[*app.Scanner]("arbitrage:scanner")
	PositionBook = di.NewToken[*app.PositionBook]("arbitrage:positionBook")
	PendingStore = di.NewToken[*pending.BadgerStore]("arbitrage:pendingStore")
	TokenSource  = di.NewToken[app.TokenSource]("arbitrage:tokenSource")
	Clock        = di.NewToken[app.Clock]("arbitrage:clock")
)

// Helper functions for type-safe access
func GetScheduler(c di.ServiceRegistry) *app.Scheduler {
	return di.GetToken(c, Scheduler)
}

func GetManager(c di.ServiceRegistry) *app.Manager {
	return di.GetToken(c, Manager)
}

func GetLedger(c di.ServiceRegistry) *ledger.JSONFile {
	return di.GetToken(c, Ledger)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}

func GetPositionBook(c di.ServiceRegistry) *app.PositionBook {
	return di.GetToken(c, PositionBook)
}

func GetPendingStore(c di.ServiceRegistry) *pending.BadgerStore {
	return di.GetToken(c, PendingStore)
}

func GetTokenSource(c di.ServiceRegistry) app.TokenSource {
	return di.GetToken(c, TokenSource)
}

func GetClock(c di.ServiceRegistry) app.Clock {
	return di.GetToken(c, Clock)
}
