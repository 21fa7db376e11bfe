// Package ethereum provides Polygon JSON-RPC infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-bot/business/blockchain/app"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-arbitrage-bot/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/dex-arbitrage-bot/business/blockchain/infra/ethereum"
)

var _ app.ChainClient = (*Client)(nil)

type clientMetrics struct {
	calls   metric.Int64Counter
	errors  metric.Int64Counter
	latency metric.Float64Histogram
}

// Client guards a ChainClient with a circuit breaker and records a span and
// metrics for every call. Errors come back as CHAIN_RPC_ERROR or
// CIRCUIT_OPEN, except ethereum.NotFound which passes through untouched.
type Client struct {
	inner  app.ChainClient
	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[any]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient wraps inner, usually an *ethclient.Client.
func NewClient(inner app.ChainClient, log logger.LoggerInterface) (*Client, error) {
	c := &Client{
		inner:  inner,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("polygon-rpc")
	cbCfg.IsSuccessful = func(err error) bool {
		// A missing receipt and a cancelled wait say nothing about node health.
		return err == nil || errors.Is(err, ethereum.NotFound) || errors.Is(err, context.Canceled)
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[any](cbCfg)

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.calls, err = meter.Int64Counter(
		"chain_rpc_calls_total",
		metric.WithDescription("Total Polygon RPC calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.errors, err = meter.Int64Counter(
		"chain_rpc_errors_total",
		metric.WithDescription("Total failed Polygon RPC calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	c.metrics.latency, err = meter.Float64Histogram(
		"chain_rpc_latency_ms",
		metric.WithDescription("Polygon RPC call latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// guard runs fn under the breaker with tracing and metrics.
func guard[T any](ctx context.Context, c *Client, method string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	ctx, span := c.tracer.Start(ctx, "chain."+method)
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("method", method))
	start := time.Now()

	v, err := c.cb.Execute(func() (any, error) {
		return fn(ctx)
	})

	c.metrics.calls.Add(ctx, 1, attrs)
	c.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			span.SetStatus(codes.Ok, "not found")
			return zero, err
		}

		c.metrics.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")

		if circuitbreaker.IsOpen(err) {
			return zero, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err),
				apperror.WithContext(method))
		}
		return zero, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	span.SetStatus(codes.Ok, "ok")
	out, _ := v.(T)
	return out, nil
}

// ChainID returns the connected chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return guard(ctx, c, "chain_id", c.inner.ChainID)
}

// BlockNumber returns the current head number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return guard(ctx, c, "block_number", c.inner.BlockNumber)
}

// HeaderByNumber returns a header; nil number means latest.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return guard(ctx, c, "header_by_number", func(ctx context.Context) (*types.Header, error) {
		return c.inner.HeaderByNumber(ctx, number)
	})
}

// BalanceAt returns the native balance of account.
func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return guard(ctx, c, "balance_at", func(ctx context.Context) (*big.Int, error) {
		return c.inner.BalanceAt(ctx, account, blockNumber)
	})
}

// CallContract executes a read-only call.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return guard(ctx, c, "call_contract", func(ctx context.Context) ([]byte, error) {
		return c.inner.CallContract(ctx, msg, blockNumber)
	})
}

// PendingNonceAt returns the next nonce for account.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return guard(ctx, c, "pending_nonce_at", func(ctx context.Context) (uint64, error) {
		return c.inner.PendingNonceAt(ctx, account)
	})
}

// SuggestGasPrice returns the node's legacy gas price suggestion.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return guard(ctx, c, "suggest_gas_price", c.inner.SuggestGasPrice)
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := guard(ctx, c, "send_transaction", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.inner.SendTransaction(ctx, tx)
	})
	return err
}

// TransactionReceipt returns the receipt, or ethereum.NotFound while pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return guard(ctx, c, "transaction_receipt", func(ctx context.Context) (*types.Receipt, error) {
		return c.inner.TransactionReceipt(ctx, txHash)
	})
}
