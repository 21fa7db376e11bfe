package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-arbitrage-bot/business/reporting/app"
	meterName  = "github.com/fd1az/dex-arbitrage-bot/business/reporting/app"

	DigestSubject  = "Daily Trades Report"
	digestPreamble = "Here is your daily trades report:\n\n"
)

// Digest mails the full trade ledger once at start and then every interval.
type Digest struct {
	mailer   Mailer
	ledger   LedgerSource
	interval time.Duration
	logger   logger.LoggerInterface

	tracer trace.Tracer
	sent   metric.Int64Counter
	failed metric.Int64Counter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDigest creates a Digest.
func NewDigest(mailer Mailer, ledger LedgerSource, interval time.Duration, log logger.LoggerInterface) (*Digest, error) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	meter := otel.Meter(meterName)
	sent, err := meter.Int64Counter("digest_emails_sent_total",
		metric.WithDescription("Trade digests delivered"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("digest_emails_failed_total",
		metric.WithDescription("Trade digests that could not be delivered"))
	if err != nil {
		return nil, err
	}

	return &Digest{
		mailer:   mailer,
		ledger:   ledger,
		interval: interval,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
		sent:     sent,
		failed:   failed,
	}, nil
}

// Start sends the first digest and schedules the rest in the background.
func (d *Digest) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		d.run(ctx)
	}()
}

func (d *Digest) run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.Send(ctx); err != nil {
			d.logger.Error(ctx, "trade digest not sent", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Send mails the current ledger once.
func (d *Digest) Send(ctx context.Context) error {
	ctx, span := d.tracer.Start(ctx, "reporting.digest")
	defer span.End()

	raw, err := d.ledger.Raw(ctx)
	if err != nil {
		d.failed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger unreadable")
		return err
	}

	if err := d.mailer.Send(ctx, DigestSubject, digestPreamble+string(raw)); err != nil {
		d.failed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithCause(err),
			apperror.WithContext("trade digest"))
	}

	d.sent.Add(ctx, 1)
	span.SetStatus(codes.Ok, "")
	d.logger.Info(ctx, "trade digest sent", "bytes", len(raw))
	return nil
}

// Stop cancels the schedule and waits for an in-flight send.
func (d *Digest) Stop() error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
