package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-bot/business/blockchain/app"
	"github.com/fd1az/dex-arbitrage-bot/business/blockchain/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/cache"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

var _ app.GasOracle = (*GasOracle)(nil)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL time.Duration
	// SwapGasPrice is the fixed price every swap is signed with.
	SwapGasPrice *big.Int
	SwapGasLimit uint64
}

// GasOracleConfigFrom derives oracle settings from the execution config.
func GasOracleConfigFrom(cfg config.ExecutionConfig) GasOracleConfig {
	return GasOracleConfig{
		CacheTTL:     2 * time.Second,
		SwapGasPrice: domain.GweiToWei(cfg.GasPriceGwei),
		SwapGasLimit: cfg.GasLimit,
	}
}

type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	underpriced     metric.Int64Counter
	cacheHits       metric.Int64Counter
}

// GasOracle reports the network gas price and flags when it rises above the
// fixed price swaps are signed with, since such swaps may sit unmined.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface
	client app.ChainClient

	priceCache *cache.Cache[string, *domain.GasPrice]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, client app.ChainClient, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:     cfg,
		logger:     log,
		client:     client,
		priceCache: cache.New[string, *domain.GasPrice](time.Minute),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current network gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.underpriced, err = meter.Int64Counter(
		"gas_swap_price_below_network_total",
		metric.WithDescription("Observations of the network price above the swap gas price"),
		metric.WithUnit("{observation}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	return err
}

// GasPrice retrieves the current gas price with caching.
func (g *GasOracle) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	if price, found := g.priceCache.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	g.metrics.gasPriceFetches.Add(ctx, 1)

	wei, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	price := domain.NewGasPrice(wei)
	g.priceCache.Set(ctx, "current", price, g.config.CacheTTL)
	g.metrics.gasPriceGwei.Record(ctx, price.Gwei)

	if g.config.SwapGasPrice != nil && wei.Cmp(g.config.SwapGasPrice) > 0 {
		g.metrics.underpriced.Add(ctx, 1)
		g.logger.Warn(ctx, "network gas price above swap gas price",
			"network_gwei", price.Gwei,
			"swap_gwei", domain.NewGasPrice(g.config.SwapGasPrice).Gwei)
	}

	span.SetAttributes(attribute.Float64("gwei", price.Gwei))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// Estimate returns the worst-case fee of one swap.
func (g *GasOracle) Estimate() *domain.GasEstimate {
	return domain.CalculateGasEstimate(g.config.SwapGasLimit, domain.NewGasPrice(g.config.SwapGasPrice))
}

// Close releases the price cache.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}
