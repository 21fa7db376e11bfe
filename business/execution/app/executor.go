package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blockchainApp "github.com/fd1az/dex-arbitrage-bot/business/blockchain/app"
	blockchainDomain "github.com/fd1az/dex-arbitrage-bot/business/blockchain/domain"
	"github.com/fd1az/dex-arbitrage-bot/business/execution/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-arbitrage-bot/business/execution/app"
	meterName  = "github.com/fd1az/dex-arbitrage-bot/business/execution/app"
)

// ExecutorConfig holds swap submission settings.
type ExecutorConfig struct {
	GasLimit            uint64
	GasPrice            *big.Int
	Deadline            time.Duration
	Confirmations       uint64
	ConfirmationTimeout time.Duration
	ReceiptPollInterval time.Duration
	SlippageProtection  bool
	SlippageBps         int64
	WETH                common.Address
	Routers             map[pricingDomain.Venue]common.Address
}

// ExecutorConfigFrom assembles executor settings from the application config.
func ExecutorConfigFrom(cfg *config.Config) ExecutorConfig {
	return ExecutorConfig{
		GasLimit:            cfg.Execution.GasLimit,
		GasPrice:            blockchainDomain.GweiToWei(cfg.Execution.GasPriceGwei),
		Deadline:            cfg.Execution.Deadline,
		Confirmations:       cfg.Execution.Confirmations,
		ConfirmationTimeout: cfg.Execution.ConfirmationTimeout,
		ReceiptPollInterval: cfg.Execution.ReceiptPollInterval,
		SlippageProtection:  cfg.Execution.SlippageProtection,
		SlippageBps:         cfg.Execution.SlippageBps,
		WETH:                cfg.Pricing.WETH(),
		Routers: map[pricingDomain.Venue]common.Address{
			pricingDomain.VenueSushiSwap: cfg.DEX.SushiSwapRouterAddress(),
			pricingDomain.VenueUniswap:   cfg.DEX.UniswapRouterAddress(),
		},
	}
}

type executorMetrics struct {
	submitted    metric.Int64Counter
	confirmed    metric.Int64Counter
	failed       metric.Int64Counter
	approvals    metric.Int64Counter
	confirmDelay metric.Float64Histogram
}

// Executor submits V2 router swaps as legacy transactions and waits for the
// configured number of confirmations.
type Executor struct {
	cfg       ExecutorConfig
	chain     blockchainApp.ChainClient
	contracts Contracts
	signer    TxSigner
	gas       blockchainApp.GasOracle
	logger    logger.LoggerInterface
	now       func() time.Time

	// sendMu serialises nonce allocation and broadcast.
	sendMu sync.Mutex

	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor creates an executor.
func NewExecutor(cfg ExecutorConfig, chain blockchainApp.ChainClient, contracts Contracts, signer TxSigner, gas blockchainApp.GasOracle, log logger.LoggerInterface) (*Executor, error) {
	if cfg.Confirmations == 0 {
		cfg.Confirmations = 1
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = 3 * time.Second
	}

	e := &Executor{
		cfg:       cfg,
		chain:     chain,
		contracts: contracts,
		signer:    signer,
		gas:       gas,
		logger:    log,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.submitted, err = meter.Int64Counter(
		"swaps_submitted_total",
		metric.WithDescription("Swap transactions broadcast"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	e.metrics.confirmed, err = meter.Int64Counter(
		"swaps_confirmed_total",
		metric.WithDescription("Swap transactions confirmed"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	e.metrics.failed, err = meter.Int64Counter(
		"swaps_failed_total",
		metric.WithDescription("Swap attempts that did not confirm, by error code"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	e.metrics.approvals, err = meter.Int64Counter(
		"token_approvals_total",
		metric.WithDescription("Router approvals sent"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	e.metrics.confirmDelay, err = meter.Float64Histogram(
		"swap_confirmation_seconds",
		metric.WithDescription("Time from broadcast to required confirmations"),
		metric.WithUnit("s"),
	)
	return err
}

// Execute runs one swap. It never panics and reports every failure through
// the result.
func (e *Executor) Execute(ctx context.Context, req domain.TradeRequest) (res domain.TradeResult) {
	ctx, span := e.tracer.Start(ctx, "execution.execute",
		trace.WithAttributes(
			attribute.String("venue", string(req.Venue)),
			attribute.String("symbol", req.Symbol),
			attribute.String("direction", string(req.Direction)),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(ctx, "swap execution panicked", "panic", r, "stack", string(debug.Stack()))
			res = domain.Failed(res.TxHash, apperror.New(apperror.CodeInternalError,
				apperror.WithContext(fmt.Sprintf("swap panic: %v", r))))
		}
		if res.Confirmed {
			e.metrics.confirmed.Add(ctx, 1)
			span.SetStatus(codes.Ok, "confirmed")
			return
		}
		e.metrics.failed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("code", string(apperror.GetCode(res.Err)))))
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "swap failed")
	}()

	return e.execute(ctx, req)
}

func (e *Executor) execute(ctx context.Context, req domain.TradeRequest) domain.TradeResult {
	router, ok := e.cfg.Routers[req.Venue]
	if !ok {
		return domain.Failed(common.Hash{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("no router for venue "+string(req.Venue))))
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return domain.Failed(common.Hash{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("swap amount must be positive")))
	}

	if err := e.checkGasBalance(ctx); err != nil {
		return domain.Failed(common.Hash{}, err)
	}

	path := req.Path(e.cfg.WETH)

	if err := e.ensureAllowance(ctx, path[0], router, req.AmountIn); err != nil {
		return domain.Failed(common.Hash{}, err)
	}

	minOut := big.NewInt(0)
	if e.cfg.SlippageProtection {
		amounts, err := e.contracts.AmountsOut(ctx, router, req.AmountIn, path)
		if err != nil {
			return domain.Failed(common.Hash{}, apperror.New(apperror.CodeSlippageQuoteFailed,
				apperror.WithCause(err),
				apperror.WithContext(req.Symbol)))
		}
		minOut = domain.MinAmountOut(amounts[len(amounts)-1], e.cfg.SlippageBps)
	}

	deadline := big.NewInt(e.now().Add(e.cfg.Deadline).Unix())
	data, err := e.contracts.PackSwap(req.AmountIn, minOut, path, e.signer.Address(), deadline)
	if err != nil {
		return domain.Failed(common.Hash{}, apperror.New(apperror.CodeTradeSubmitFailed,
			apperror.WithCause(err),
			apperror.WithContext("pack swap")))
	}

	hash, err := e.send(ctx, router, data)
	if err != nil {
		return domain.Failed(common.Hash{}, apperror.New(apperror.CodeTradeSubmitFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s %s on %s", req.Direction, req.Symbol, req.Venue))))
	}

	e.metrics.submitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", string(req.Venue)),
		attribute.String("direction", string(req.Direction))))
	e.logger.Info(ctx, "swap submitted",
		"symbol", req.Symbol,
		"venue", req.Venue,
		"direction", req.Direction,
		"amount_in", req.AmountIn.String(),
		"min_out", minOut.String(),
		"tx", hash.Hex())

	receipt, confirmations, err := e.waitConfirmed(ctx, hash)
	if err != nil {
		res := domain.Failed(hash, err)
		res.MinAmountOut = minOut
		return res
	}

	return domain.TradeResult{
		Confirmed:     true,
		TxHash:        hash,
		BlockNumber:   receipt.BlockNumber.Uint64(),
		Confirmations: confirmations,
		GasUsed:       receipt.GasUsed,
		MinAmountOut:  minOut,
	}
}

// checkGasBalance fails fast when the account cannot pay for a swap at the
// configured gas limit and price.
func (e *Executor) checkGasBalance(ctx context.Context) error {
	balance, err := e.chain.BalanceAt(ctx, e.signer.Address(), nil)
	if err != nil {
		return err
	}

	estimate := e.gas.Estimate()
	if !estimate.Covers(balance) {
		return apperror.New(apperror.CodeInsufficientBalance,
			apperror.WithContext(fmt.Sprintf("gas needs %s wei, balance %s", estimate.TotalWei, balance)))
	}
	return nil
}

// ensureAllowance approves router for the maximum amount when the current
// allowance does not cover amount, and waits for the approval to confirm.
func (e *Executor) ensureAllowance(ctx context.Context, token, router common.Address, amount *big.Int) error {
	allowance, err := e.contracts.Allowance(ctx, token, e.signer.Address(), router)
	if err != nil {
		return apperror.New(apperror.CodeApprovalFailed, apperror.WithCause(err), apperror.WithContext("read allowance"))
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	data, err := e.contracts.PackApprove(router, math.MaxBig256)
	if err != nil {
		return apperror.New(apperror.CodeApprovalFailed, apperror.WithCause(err), apperror.WithContext("pack approve"))
	}

	hash, err := e.send(ctx, token, data)
	if err != nil {
		return apperror.New(apperror.CodeApprovalFailed, apperror.WithCause(err), apperror.WithContext("send approve"))
	}
	e.metrics.approvals.Add(ctx, 1)
	e.logger.Info(ctx, "router approval submitted", "token", token.Hex(), "router", router.Hex(), "tx", hash.Hex())

	if _, _, err := e.waitConfirmed(ctx, hash); err != nil {
		return apperror.New(apperror.CodeApprovalFailed, apperror.WithCause(err), apperror.WithContext("approve "+hash.Hex()))
	}
	return nil
}

// send signs and broadcasts a legacy transaction to `to`.
func (e *Executor) send(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	nonce, err := e.chain.PendingNonceAt(ctx, e.signer.Address())
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      e.cfg.GasLimit,
		GasPrice: e.cfg.GasPrice,
		Data:     data,
	})

	signed, err := e.signer.SignTx(tx)
	if err != nil {
		return common.Hash{}, err
	}

	if err := e.chain.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// waitConfirmed polls for the receipt and then for the head to move far
// enough past it. Transient RPC errors are retried until the timeout.
func (e *Executor) waitConfirmed(ctx context.Context, hash common.Hash) (*types.Receipt, uint64, error) {
	ctx, span := e.tracer.Start(ctx, "execution.wait_confirmed",
		trace.WithAttributes(attribute.String("tx", hash.Hex())))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmationTimeout)
	defer cancel()

	start := time.Now()
	ticker := time.NewTicker(e.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := e.chain.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, 0, apperror.New(apperror.CodeTradeReverted,
					apperror.WithContext(hash.Hex()))
			}
			head, herr := e.chain.BlockNumber(ctx)
			if herr != nil {
				lastErr = herr
				break
			}
			if confs := confirmationsAt(head, receipt.BlockNumber.Uint64()); confs >= e.cfg.Confirmations {
				e.metrics.confirmDelay.Record(ctx, time.Since(start).Seconds())
				span.SetAttributes(attribute.Int64("confirmations", int64(confs)))
				return receipt, confs, nil
			}
		case errors.Is(err, ethereum.NotFound):
		default:
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				e.logger.Warn(ctx, "last receipt poll error", "tx", hash.Hex(), "error", lastErr)
			}
			return nil, 0, apperror.New(apperror.CodeConfirmationTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext(hash.Hex()))
		case <-ticker.C:
		}
	}
}

func confirmationsAt(head, mined uint64) uint64 {
	if head < mined {
		return 0
	}
	return head - mined + 1
}
