// Package reporting implements the operator notification context: the
// periodic trade digest and failure alerts.
package reporting

import (
	"context"

	arbitrageDI "github.com/fd1az/dex-arbitrage-bot/business/arbitrage/di"
	"github.com/fd1az/dex-arbitrage-bot/business/reporting/app"
	reportingDI "github.com/fd1az/dex-arbitrage-bot/business/reporting/di"
	"github.com/fd1az/dex-arbitrage-bot/business/reporting/infra/email"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/di"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
	"github.com/fd1az/dex-arbitrage-bot/internal/monolith"
)

// Module implements the reporting bounded context.
type Module struct{}

// RegisterServices registers all reporting services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Mailer (private - nil when email is not configured)
	di.RegisterToken(c, reportingDI.Mailer, func(sr di.ServiceRegistry) app.Mailer {
		cfg := sr.Get("config").(*config.Config)
		if !cfg.Notify.Enabled() {
			return nil
		}

		sender, err := email.NewSender(email.ConfigFrom(cfg.Notify))
		if err != nil {
			panic("failed to create email sender: " + err.Error())
		}
		return sender
	})

	// Register Alerter (public - the lifecycle manager alerts on failed closes)
	di.RegisterToken(c, reportingDI.Alerter, func(sr di.ServiceRegistry) *app.Alerter {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewAlerter(reportingDI.GetMailer(sr), log)
	})

	// Register Digest (private)
	di.RegisterToken(c, reportingDI.Digest, func(sr di.ServiceRegistry) *app.Digest {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		digest, err := app.NewDigest(
			reportingDI.GetMailer(sr),
			arbitrageDI.GetLedger(sr),
			cfg.Notify.DigestInterval,
			log,
		)
		if err != nil {
			panic("failed to create digest: " + err.Error())
		}
		return digest
	})

	return nil
}

// Startup starts the digest schedule when email is configured.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	if !cfg.Notify.Enabled() {
		log.Warn(ctx, "email credentials missing, trade digest disabled")
		return nil
	}

	digest := reportingDI.GetDigest(mono.Services())
	digest.Start(ctx)
	mono.OnClose(digest.Stop)

	log.Info(ctx, "reporting module started",
		"recipient", cfg.Notify.To(),
		"interval", cfg.Notify.DigestInterval.String())
	return nil
}
