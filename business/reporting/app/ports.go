// Package app contains the digest and alerting services of the reporting context.
package app

import "context"

// Mailer delivers a plain-text message to the operator.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// LedgerSource exposes the trade ledger exactly as stored.
type LedgerSource interface {
	Raw(ctx context.Context) ([]byte, error)
}
