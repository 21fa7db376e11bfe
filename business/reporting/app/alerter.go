package app

import (
	"context"

	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

// Alerter raises operator alerts by email. Every alert is also logged, so a
// nil mailer degrades to log-only alerts.
type Alerter struct {
	mailer Mailer
	logger logger.LoggerInterface
}

// NewAlerter creates an Alerter. mailer may be nil.
func NewAlerter(mailer Mailer, log logger.LoggerInterface) *Alerter {
	return &Alerter{mailer: mailer, logger: log}
}

// Alert logs the alert and mails it when a mailer is configured.
func (a *Alerter) Alert(ctx context.Context, subject, body string) error {
	a.logger.Error(ctx, "operator alert", "subject", subject, "body", body)

	if a.mailer == nil {
		return nil
	}
	if err := a.mailer.Send(ctx, subject, body); err != nil {
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithCause(err),
			apperror.WithContext(subject))
	}
	return nil
}
