// Package moralis provides a Moralis Web3 Data API price client.
package moralis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
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
	tracerName = "github.com/fd1az/dex-arbitrage-bot/business/pricing/infra/moralis"

	DefaultBaseURL = "https://deep-index.moralis.io/api/v2.2"
	PolygonChain   = "0x89"

	defaultTimeout = 10 * time.Second
)

var _ app.TokenPriceSource = (*Client)(nil)

// Config holds Moralis client settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Chain             string
	RequestsPerMinute int
	Timeout           time.Duration
}

// ConfigFrom maps the pricing section of the application config.
func ConfigFrom(cfg config.PricingConfig) Config {
	return Config{
		APIKey:            cfg.MoralisAPIKey,
		BaseURL:           cfg.MoralisBaseURL,
		Chain:             cfg.MoralisChain,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Timeout:           cfg.RequestTimeout,
	}
}

// Client fetches aggregated token prices.
type Client struct {
	client  httpclient.Client
	cfg     Config
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[decimal.Decimal]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewClient creates a Moralis client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("moralis api key is required"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Chain == "" {
		cfg.Chain = PolygonChain
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("moralis"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept":    "application/json",
			"X-API-Key": cfg.APIKey,
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

	cbCfg := circuitbreaker.DefaultConfig("moralis")
	cbCfg.IsSuccessful = func(err error) bool {
		// Unknown tokens are answered with 4xx by a healthy API.
		var se *statusError
		if errors.As(err, &se) {
			return se.Status < 500 && se.Status != http.StatusTooManyRequests
		}
		return err == nil || errors.Is(err, context.Canceled)
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[decimal.Decimal](cbCfg)

	return c, nil
}

type priceResponse struct {
	USDPrice        decimal.NullDecimal `json:"usdPrice"`
	ExchangeName    string              `json:"exchangeName"`
	ExchangeAddress string              `json:"exchangeAddress"`
}

// TokenPrice returns the token's USD price. exchange narrows the price to
// one DEX's pools, e.g. "uniswapv3".
func (c *Client) TokenPrice(ctx context.Context, token common.Address, exchange string) (decimal.Decimal, error) {
	ctx, span := c.tracer.Start(ctx, "moralis.token_price",
		trace.WithAttributes(
			attribute.String("token", token.Hex()),
			attribute.String("exchange", exchange),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	price, err := c.cb.Execute(func() (decimal.Decimal, error) {
		return c.fetch(ctx, token, exchange)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token price failed")
		if circuitbreaker.IsOpen(err) {
			return decimal.Zero, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err), apperror.WithContext("moralis"))
		}
		return decimal.Zero, apperror.New(apperror.CodeMoralisAPIError,
			apperror.WithCause(err),
			apperror.WithContext("token "+token.Hex()))
	}

	span.SetAttributes(attribute.String("usd_price", price.String()))
	span.SetStatus(codes.Ok, "")
	return price, nil
}

func (c *Client) fetch(ctx context.Context, token common.Address, exchange string) (decimal.Decimal, error) {
	var result priceResponse
	req := c.client.NewRequest(
		httpclient.WithEndpoint("erc20_price"),
		httpclient.WithResponseErrorHandler(moralisErrorHandler),
	).
		SetQueryParam("chain", c.cfg.Chain).
		SetResult(&result)
	if exchange != "" {
		req.SetQueryParam("exchange", exchange)
	}

	if _, err := req.Get(ctx, "/erc20/"+strings.ToLower(token.Hex())+"/price"); err != nil {
		return decimal.Zero, err
	}

	if !result.USDPrice.Valid {
		return decimal.Zero, errors.New("response carries no usdPrice")
	}

	c.logger.Debug(ctx, "fetched token price",
		"token", token.Hex(),
		"exchange", exchange,
		"usd_price", result.USDPrice.Decimal.String())

	return result.USDPrice.Decimal, nil
}

type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("moralis HTTP %d: %s", e.Status, e.Message)
}

func moralisErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr struct {
		Message string `json:"message"`
	}
	msg := string(body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &statusError{Status: statusCode, Message: msg}
}
