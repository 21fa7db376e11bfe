package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/cache"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-arbitrage-bot/business/pricing/app"
	meterName  = "github.com/fd1az/dex-arbitrage-bot/business/pricing/app"

	wethPriceKey = "weth_usd"
)

// OracleConfig configures an Oracle.
type OracleConfig struct {
	WETH            common.Address
	UniswapExchange string
	WETHPriceTTL    time.Duration
}

// OracleConfigFrom maps the pricing section of the application config.
func OracleConfigFrom(cfg config.PricingConfig) OracleConfig {
	return OracleConfig{
		WETH:            cfg.WETH(),
		UniswapExchange: cfg.UniswapExchange,
		WETHPriceTTL:    cfg.WETHPriceTTL,
	}
}

type oracleMetrics struct {
	quotes      metric.Int64Counter
	unavailable metric.Int64Counter
	latency     metric.Float64Histogram
}

// Oracle quotes USD prices per venue. Uniswap prices come straight from the
// token price API; SushiSwap prices are the subgraph pool price scaled by
// the WETH/USD reference price.
type Oracle struct {
	cfg    OracleConfig
	tokens TokenPriceSource
	pairs  PairPriceSource
	logger logger.LoggerInterface
	weth   *cache.Cache[string, decimal.Decimal]
	now    func() time.Time

	tracer  trace.Tracer
	metrics *oracleMetrics
}

// NewOracle creates an Oracle.
func NewOracle(cfg OracleConfig, tokens TokenPriceSource, pairs PairPriceSource, log logger.LoggerInterface) (*Oracle, error) {
	o := &Oracle{
		cfg:    cfg,
		tokens: tokens,
		pairs:  pairs,
		logger: log,
		weth:   cache.New[string, decimal.Decimal](time.Minute),
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}

	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return o, nil
}

func (o *Oracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &oracleMetrics{}

	o.metrics.quotes, err = meter.Int64Counter(
		"price_quotes_total",
		metric.WithDescription("Venue price lookups"),
	)
	if err != nil {
		return err
	}

	o.metrics.unavailable, err = meter.Int64Counter(
		"price_unavailable_total",
		metric.WithDescription("Venue price lookups that returned no price"),
	)
	if err != nil {
		return err
	}

	o.metrics.latency, err = meter.Float64Histogram(
		"price_fetch_latency_ms",
		metric.WithDescription("Venue price lookup latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Quote returns the token's USD price on venue, or an unavailable quote when
// any lookup fails.
func (o *Oracle) Quote(ctx context.Context, token domain.Token, venue domain.Venue) domain.Quote {
	ctx, span := o.tracer.Start(ctx, "pricing.quote",
		trace.WithAttributes(
			attribute.String("token", token.Symbol),
			attribute.String("venue", venue.String()),
		),
	)
	defer span.End()

	start := time.Now()
	price, err := o.price(ctx, token, venue)
	attrs := metric.WithAttributes(attribute.String("venue", venue.String()))
	o.metrics.quotes.Add(ctx, 1, attrs)
	o.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if err != nil {
		o.metrics.unavailable.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "price unavailable")
		o.logger.Warn(ctx, "price unavailable",
			"token", token.Symbol, "venue", venue.String(), "error", err)
		return domain.Unavailable(token, venue)
	}

	q := domain.NewQuote(token, venue, price, o.now())
	if !q.Available {
		o.metrics.unavailable.Add(ctx, 1, attrs)
		span.SetStatus(codes.Error, "non-positive price")
		return q
	}

	span.SetAttributes(attribute.String("usd_price", price.String()))
	span.SetStatus(codes.Ok, "")
	return q
}

func (o *Oracle) price(ctx context.Context, token domain.Token, venue domain.Venue) (decimal.Decimal, error) {
	switch venue {
	case domain.VenueUniswap:
		return o.tokens.TokenPrice(ctx, token.Address, o.cfg.UniswapExchange)
	case domain.VenueSushiSwap:
		rel, err := o.pairs.Token0Price(ctx, o.cfg.WETH, token.Address)
		if err != nil {
			return decimal.Zero, err
		}
		weth, err := o.WETHPrice(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return rel.Mul(weth), nil
	default:
		return decimal.Zero, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("unknown venue "+venue.String()))
	}
}

// WETHPrice returns the WETH/USD reference price, cached for WETHPriceTTL.
func (o *Oracle) WETHPrice(ctx context.Context) (decimal.Decimal, error) {
	if p, ok := o.weth.Get(ctx, wethPriceKey); ok {
		return p, nil
	}

	p, err := o.tokens.TokenPrice(ctx, o.cfg.WETH, "")
	if err != nil {
		return decimal.Zero, err
	}
	if !p.IsPositive() {
		return decimal.Zero, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithContext("non-positive WETH price"))
	}

	if o.cfg.WETHPriceTTL > 0 {
		o.weth.Set(ctx, wethPriceKey, p, o.cfg.WETHPriceTTL)
	}
	return p, nil
}

// Close stops the reference price cache.
func (o *Oracle) Close() error {
	o.weth.Close()
	return nil
}
