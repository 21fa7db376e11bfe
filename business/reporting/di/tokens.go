// Package di contains dependency injection tokens for the reporting context.
package di

import (
	"github.com/fd1az/dex-arbitrage-bot/business/reporting/app"
	"github.com/fd1az/dex-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Alerter = di.NewToken[*app.Alerter]("reporting.Alerter")
)

// Private dependency tokens - internal to reporting module
var (
	Mailer = di.NewToken[app.Mailer]("reporting:mailer")
	Digest = di.NewToken[*app.Digest]("reporting:digest")
)

func GetAlerter(c di.ServiceRegistry) *app.Alerter {
	return di.GetToken(c, Alerter)
}

func GetMailer(c di.ServiceRegistry) app.Mailer {
	return di.GetToken(c, Mailer)
}

func GetDigest(c di.ServiceRegistry) *app.Digest {
	return di.GetToken(c, Digest)
}
