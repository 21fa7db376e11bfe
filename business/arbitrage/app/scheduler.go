package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

// SchedulerConfig holds the cycle cadence.
type SchedulerConfig struct {
	CycleDelay time.Duration
}

// Scheduler runs the scan → process loop. A cycle never overlaps another:
// opportunities are processed sequentially and each round trip completes
// before the next begins.
type Scheduler struct {
	tokens   TokenSource
	scanner  *Scanner
	manager  *Manager
	reporter Reporter
	clock    Clock
	cfg      SchedulerConfig
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	cycles  metric.Int64Counter
	panics  metric.Int64Counter
	cycleMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	tokens TokenSource,
	scanner *Scanner,
	manager *Manager,
	reporter Reporter,
	clock Clock,
	cfg SchedulerConfig,
	log logger.LoggerInterface,
) (*Scheduler, error) {
	if clock == nil {
		clock = SystemClock{}
	}

	meter := otel.Meter(meterName)
	cycles, err := meter.Int64Counter("arbitrage_cycles_total",
		metric.WithDescription("Completed scan cycles"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	panics, err := meter.Int64Counter("arbitrage_cycle_panics_total",
		metric.WithDescription("Cycles aborted by a recovered panic"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Scheduler{
		tokens:   tokens,
		scanner:  scanner,
		manager:  manager,
		reporter: reporter,
		clock:    clock,
		cfg:      cfg,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
		cycles:   cycles,
		panics:   panics,
	}, nil
}

// Start begins the cycle loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info(ctx, "starting arbitrage scheduler", "cycle_delay", s.cfg.CycleDelay.String())

	if err := s.reporter.Start(ctx); err != nil {
		return err
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.Run(ctx)
	}()
	return nil
}

// Run executes cycles until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.RunCycle(ctx)

		if err := s.clock.Wait(ctx, s.cfg.CycleDelay); err != nil {
			s.logger.Info(context.WithoutCancel(ctx), "scheduler stopping", "reason", err)
			return
		}
	}
}

// RunCycle performs one cycle: retry pending closes, load tokens, scan, then
// process each opportunity in order. Panics are recovered so the next cycle
// still runs.
func (s *Scheduler) RunCycle(ctx context.Context) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	ctx, span := s.tracer.Start(ctx, "arbitrage.cycle")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("cycle panic: %v", r)
			s.panics.Add(ctx, 1)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			s.logger.Error(ctx, "recovered panic in cycle", "panic", r, "stack", string(debug.Stack()))
			s.reporter.ReportError(err)
		}
	}()

	s.manager.RetryPendingCloses(ctx)

	tokens, err := s.tokens.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token list unavailable")
		s.logger.Error(ctx, "failed to load token list, skipping cycle", "error", err)
		s.reporter.ReportError(err)
		return
	}

	opportunities, snapshot := s.scanner.Scan(ctx, tokens)
	s.reporter.ReportScan(snapshot)

	span.SetAttributes(
		attribute.Int("tokens", len(tokens)),
		attribute.Int("opportunities", len(opportunities)),
	)

	for _, opp := range opportunities {
		if ctx.Err() != nil {
			break
		}
		if err := s.manager.Process(ctx, opp); err != nil {
			s.logger.Warn(ctx, "opportunity not settled", "symbol", opp.Token.Symbol, "error", err)
		}
	}

	s.cycles.Add(ctx, 1)
	span.SetStatus(codes.Ok, "")
}

// Stop cancels the loop, waits for the current cycle to unwind and stops the
// reporter.
func (s *Scheduler) Stop() error {
	s.logger.Info(context.Background(), "stopping arbitrage scheduler")
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return s.reporter.Stop()
}
