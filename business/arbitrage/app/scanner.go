package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-arbitrage-bot/business/arbitrage/app"
	meterName  = "github.com/fd1az/dex-arbitrage-bot/business/arbitrage/app"
)

type scannerMetrics struct {
	scans         metric.Int64Counter
	opportunities metric.Int64Counter
	unavailable   metric.Int64Counter
	scanLatency   metric.Float64Histogram
}

// Scanner fetches both venue quotes for every token and keeps the tokens
// whose net spread clears the entry threshold, in input order.
type Scanner struct {
	oracle      PriceOracle
	thresholds  domain.Thresholds
	concurrency int
	clock       Clock
	logger      logger.LoggerInterface

	tracer  trace.Tracer
	metrics *scannerMetrics
}

// NewScanner creates a Scanner. concurrency bounds in-flight tokens.
func NewScanner(oracle PriceOracle, th domain.Thresholds, concurrency int, clock Clock, log logger.LoggerInterface) (*Scanner, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	s := &Scanner{
		oracle:      oracle,
		thresholds:  th,
		concurrency: concurrency,
		clock:       clock,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scanner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.scans, err = meter.Int64Counter(
		"arbitrage_scans_total",
		metric.WithDescription("Total opportunity scans"),
	)
	if err != nil {
		return err
	}

	s.metrics.opportunities, err = meter.Int64Counter(
		"arbitrage_opportunities_total",
		metric.WithDescription("Opportunities above the net profit threshold"),
	)
	if err != nil {
		return err
	}

	s.metrics.unavailable, err = meter.Int64Counter(
		"arbitrage_quotes_unavailable_total",
		metric.WithDescription("Venue quotes that could not be fetched"),
	)
	if err != nil {
		return err
	}

	s.metrics.scanLatency, err = meter.Float64Histogram(
		"arbitrage_scan_latency_ms",
		metric.WithDescription("Scan duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Scan quotes every token on both venues. Tokens with an unavailable quote
// are dropped silently. The returned opportunities keep input order.
func (s *Scanner) Scan(ctx context.Context, tokens []pricingDomain.Token) ([]*domain.Opportunity, *domain.ScanSnapshot) {
	ctx, span := s.tracer.Start(ctx, "arbitrage.scan",
		trace.WithAttributes(attribute.Int("tokens", len(tokens))),
	)
	defer span.End()

	start := s.clock.Now()
	s.metrics.scans.Add(ctx, 1)

	rows := make([]domain.ScanRow, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, token := range tokens {
		g.Go(func() error {
			rows[i] = s.scanToken(gctx, token)
			return nil
		})
	}
	_ = g.Wait()

	opps := make([]*domain.Opportunity, 0)
	for i := range rows {
		row := &rows[i]
		if !row.SushiSwap.Available {
			s.metrics.unavailable.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", string(pricingDomain.VenueSushiSwap))))
		}
		if !row.Uniswap.Available {
			s.metrics.unavailable.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", string(pricingDomain.VenueUniswap))))
		}
		if !row.Complete() {
			continue
		}

		opp := domain.EvaluateOpportunity(row.Token, row.SushiSwap, row.Uniswap, s.thresholds, start)
		row.NetPercent = pricingDomain.ArbitragePercent(row.SushiSwap.USDPrice, row.Uniswap.USDPrice).
			Sub(s.thresholds.TransactionCostPercent)
		if opp == nil {
			continue
		}

		row.Qualified = true
		opps = append(opps, opp)
		s.logger.Info(ctx, "arbitrage opportunity",
			"symbol", opp.Token.Symbol,
			"buy", opp.LowVenue,
			"sell", opp.HighVenue,
			"price_low", opp.PriceLow.String(),
			"price_high", opp.PriceHigh.String(),
			"net_pct", opp.NetArbitragePercent.StringFixed(2),
		)
	}

	elapsed := s.clock.Now().Sub(start)
	s.metrics.opportunities.Add(ctx, int64(len(opps)))
	s.metrics.scanLatency.Record(ctx, float64(elapsed.Milliseconds()))

	span.SetAttributes(attribute.Int("opportunities", len(opps)))
	span.SetStatus(codes.Ok, "scanned")

	return opps, &domain.ScanSnapshot{
		StartedAt:     start,
		Duration:      elapsed,
		Rows:          rows,
		Opportunities: opps,
	}
}

// scanToken fetches both quotes of one token concurrently.
func (s *Scanner) scanToken(ctx context.Context, token pricingDomain.Token) domain.ScanRow {
	var sushi, uni pricingDomain.Quote

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sushi = s.oracle.Quote(gctx, token, pricingDomain.VenueSushiSwap)
		return nil
	})
	g.Go(func() error {
		uni = s.oracle.Quote(gctx, token, pricingDomain.VenueUniswap)
		return nil
	})
	_ = g.Wait()

	s.logger.Debug(ctx, "token quoted",
		"symbol", token.Symbol,
		"sushiswap", quoteString(sushi),
		"uniswap", quoteString(uni),
	)

	return domain.ScanRow{Token: token, SushiSwap: sushi, Uniswap: uni}
}

func quoteString(q pricingDomain.Quote) string {
	if !q.Available {
		return "unavailable"
	}
	return q.USDPrice.String()
}
