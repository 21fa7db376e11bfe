// Package subgraph queries the SushiSwap pair subgraph over GraphQL.
package subgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/httpclient"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
	"github.com/fd1az/dex-arbitrage-bot/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/dex-arbitrage-bot/business/pricing/infra/subgraph"

	defaultTimeout = 10 * time.Second

	pairPriceQuery = `query PairPrice($token0: String!, $token1: String!) {
  pairs(where: { token0: $token0, token1: $token1 }) {
    token0Price
  }
}`
)

var (
	_ app.PairPriceSource = (*Client)(nil)

	errNoPair = errors.New("no pair")
)

// Config holds subgraph client settings.
type Config struct {
	URL               string
	RequestsPerMinute int
	Timeout           time.Duration
}

// ConfigFrom maps the pricing section of the application config.
func ConfigFrom(cfg config.PricingConfig) Config {
	return Config{
		URL:               cfg.SubgraphEndpoint(),
		RequestsPerMinute: cfg.RequestsPerMinute,
		Timeout:           cfg.RequestTimeout,
	}
}

// Client reads pool prices from a Uniswap-v2-schema subgraph.
type Client struct {
	client  httpclient.Client
	cfg     Config
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[decimal.Decimal]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewClient creates a subgraph client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("subgraph url is required"))
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("sushiswap-subgraph"),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	c := &Client{
		client:  client,
		cfg:     cfg,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		logger:  log,
		tracer:  tracer,
	}

	cbCfg := circuitbreaker.DefaultConfig("sushiswap-subgraph")
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errNoPair) || errors.Is(err, context.Canceled)
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[decimal.Decimal](cbCfg)

	return c, nil
}

type graphQLRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type pairsResponse struct {
	Data struct {
		Pairs []struct {
			Token0Price decimal.Decimal `json:"token0Price"`
		} `json:"pairs"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Token0Price returns token0Price of the first pair matching (token0, token1).
func (c *Client) Token0Price(ctx context.Context, token0, token1 common.Address) (decimal.Decimal, error) {
	ctx, span := c.tracer.Start(ctx, "subgraph.token0_price",
		trace.WithAttributes(
			attribute.String("token0", token0.Hex()),
			attribute.String("token1", token1.Hex()),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	price, err := c.cb.Execute(func() (decimal.Decimal, error) {
		return c.query(ctx, token0, token1)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pair query failed")
		switch {
		case errors.Is(err, errNoPair):
			return decimal.Zero, apperror.New(apperror.CodePairNotFound,
				apperror.WithContext(token0.Hex()+"/"+token1.Hex()))
		case circuitbreaker.IsOpen(err):
			return decimal.Zero, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err), apperror.WithContext("sushiswap subgraph"))
		default:
			return decimal.Zero, apperror.New(apperror.CodeSubgraphQueryFailed,
				apperror.WithCause(err),
				apperror.WithContext(token0.Hex()+"/"+token1.Hex()))
		}
	}

	span.SetAttributes(attribute.String("token0_price", price.String()))
	span.SetStatus(codes.Ok, "")
	return price, nil
}

func (c *Client) query(ctx context.Context, token0, token1 common.Address) (decimal.Decimal, error) {
	var result pairsResponse
	resp, err := c.client.NewRequest(
		httpclient.WithEndpoint("pairs"),
	).
		SetBody(graphQLRequest{
			Query: pairPriceQuery,
			// The subgraph stores ids lower-cased.
			Variables: map[string]string{
				"token0": strings.ToLower(token0.Hex()),
				"token1": strings.ToLower(token1.Hex()),
			},
		}).
		SetResult(&result).
		Post(ctx, c.cfg.URL)
	if err != nil {
		return decimal.Zero, err
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.String())
	}
	if !resp.Decoded() {
		return decimal.Zero, fmt.Errorf("undecodable response: %s", resp.String())
	}
	if len(result.Errors) > 0 {
		return decimal.Zero, errors.New(result.Errors[0].Message)
	}
	if len(result.Data.Pairs) == 0 {
		return decimal.Zero, errNoPair
	}

	return result.Data.Pairs[0].Token0Price, nil
}
