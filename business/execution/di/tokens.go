// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/dex-arbitrage-bot/business/execution/app"
	"github.com/fd1az/dex-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Executor       = di.NewToken[*app.Executor]("execution.Executor")
	AmountResolver = di.NewToken[*app.BalanceResolver]("execution.AmountResolver")
)

// Private dependency tokens - internal to execution module
var (
	Contracts = di.NewToken[app.Contracts]("execution:contracts")
)

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetAmountResolver(c di.ServiceRegistry) *app.BalanceResolver {
	return di.GetToken(c, AmountResolver)
}

func GetContracts(c di.ServiceRegistry) app.Contracts {
	return di.GetToken(c, Contracts)
}
