package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	executionDomain "github.com/fd1az/dex-arbitrage-bot/business/execution/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

// ManagerConfig holds lifecycle timing and thresholds.
type ManagerConfig struct {
	Thresholds    domain.Thresholds
	CheckInterval time.Duration
	// TxDeadline bounds how long an unseen close transaction may still land.
	TxDeadline    time.Duration
	Confirmations uint64
}

const (
	defaultTxDeadline    = 20 * time.Minute
	defaultConfirmations = 3
)

// ManagerDeps groups the collaborators of a Manager.
type ManagerDeps struct {
	Book     *PositionBook
	Oracle   PriceOracle
	Executor TradeExecutor
	Amounts  AmountResolver
	Ledger   Ledger
	Pending  PendingCloseStore
	Receipts ReceiptSource
	Alerter  Alerter
	Reporter Reporter
	Clock    Clock
	Logger   logger.LoggerInterface
}

type managerMetrics struct {
	opened        metric.Int64Counter
	openFailures  metric.Int64Counter
	closed        metric.Int64Counter
	closeFailures metric.Int64Counter
	realizedPnL   metric.Float64UpDownCounter
	openPositions metric.Int64UpDownCounter
	holdDuration  metric.Float64Histogram
}

// Manager drives each opportunity through OPENING → OPEN → CLOSING → CLOSED.
// Opportunities are processed one at a time, to completion.
type Manager struct {
	ManagerDeps
	cfg   ManagerConfig
	newID func() string

	tracer  trace.Tracer
	metrics *managerMetrics
}

// NewManager creates a lifecycle manager.
func NewManager(cfg ManagerConfig, deps ManagerDeps) (*Manager, error) {
	if deps.Book == nil {
		deps.Book = NewPositionBook()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if cfg.TxDeadline <= 0 {
		cfg.TxDeadline = defaultTxDeadline
	}
	if cfg.Confirmations == 0 {
		cfg.Confirmations = defaultConfirmations
	}

	m := &Manager{
		ManagerDeps: deps,
		cfg:         cfg,
		newID:       uuid.NewString,
		tracer:      otel.Tracer(tracerName),
	}

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return m, nil
}

func (m *Manager) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &managerMetrics{}

	if m.metrics.opened, err = meter.Int64Counter("arbitrage_positions_opened_total",
		metric.WithDescription("Positions whose open leg confirmed")); err != nil {
		return err
	}
	if m.metrics.openFailures, err = meter.Int64Counter("arbitrage_open_failures_total",
		metric.WithDescription("Open legs that did not confirm")); err != nil {
		return err
	}
	if m.metrics.closed, err = meter.Int64Counter("arbitrage_positions_closed_total",
		metric.WithDescription("Positions settled to the ledger")); err != nil {
		return err
	}
	if m.metrics.closeFailures, err = meter.Int64Counter("arbitrage_close_failures_total",
		metric.WithDescription("Close legs that did not confirm")); err != nil {
		return err
	}
	if m.metrics.realizedPnL, err = meter.Float64UpDownCounter("arbitrage_realized_pnl_usd",
		metric.WithDescription("Cumulative realized profit or loss"),
		metric.WithUnit("USD")); err != nil {
		return err
	}
	if m.metrics.openPositions, err = meter.Int64UpDownCounter("arbitrage_open_positions",
		metric.WithDescription("Positions currently open")); err != nil {
		return err
	}
	m.metrics.holdDuration, err = meter.Float64Histogram("arbitrage_hold_duration_seconds",
		metric.WithDescription("Time from open to close"),
		metric.WithUnit("s"))
	return err
}

// Process runs one opportunity to completion. A nil error means the
// opportunity was skipped, aborted cleanly or settled.
func (m *Manager) Process(ctx context.Context, opp *domain.Opportunity) error {
	ctx, span := m.tracer.Start(ctx, "arbitrage.process",
		trace.WithAttributes(
			attribute.String("symbol", opp.Token.Symbol),
			attribute.String("token", opp.Token.Address.Hex()),
			attribute.String("buy_venue", string(opp.LowVenue)),
			attribute.String("sell_venue", string(opp.HighVenue)),
			attribute.String("net_pct", opp.NetArbitragePercent.StringFixed(4)),
		),
	)
	defer span.End()

	if m.hasPendingClose(ctx, opp.Token) {
		m.Logger.Warn(ctx, "skipping token with unresolved close", "symbol", opp.Token.Symbol)
		span.AddEvent("pending_close_exists")
		return nil
	}

	pos, err := m.open(ctx, opp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return err
	}
	if pos == nil {
		span.SetStatus(codes.Ok, "aborted")
		return nil
	}

	if err := m.monitor(ctx, pos); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "monitor ended without settlement")
		return err
	}

	span.SetStatus(codes.Ok, "settled")
	return nil
}

// open performs NONE → OPENING → OPEN. It returns (nil, nil) on a clean abort.
func (m *Manager) open(ctx context.Context, opp *domain.Opportunity) (*domain.Position, error) {
	if err := m.Book.Begin(opp.Token, opp.Direction()); err != nil {
		m.Logger.Warn(ctx, "position already active", "symbol", opp.Token.Symbol, "error", err)
		return nil, err
	}

	amount, err := m.Amounts.Resolve(ctx)
	if err != nil || !amount.IsPositive() {
		if err == nil {
			err = apperror.New(apperror.CodeInsufficientBalance, apperror.WithContext("resolved trade amount is zero"))
		}
		m.abortOpen(ctx, opp, err)
		return nil, nil
	}

	m.Logger.Info(ctx, "opening position",
		"symbol", opp.Token.Symbol,
		"venue", opp.LowVenue,
		"amount", amount.String(),
		"net_pct", opp.NetArbitragePercent.StringFixed(2),
	)

	res := m.Executor.Execute(ctx, executionDomain.TradeRequest{
		Venue:            opp.LowVenue,
		Token:            opp.Token.Address,
		Symbol:           opp.Token.Symbol,
		Direction:        executionDomain.DirectionOpen,
		AmountIn:         amount.Raw(),
		ExpectedPriceUSD: opp.PriceLow,
	})
	if !res.Confirmed {
		m.abortOpen(ctx, opp, res.Err)
		return nil, nil
	}

	pos := &domain.Position{
		TokenAddress:   opp.Token.Address,
		Symbol:         opp.Token.Symbol,
		BuyVenue:       opp.LowVenue,
		SellVenue:      opp.HighVenue,
		AmountIn:       amount.Raw(),
		AmountDecimals: amount.Asset().Decimals(),
		BuyTxHash:      res.TxHash,
		BuyBlockNumber: res.BlockNumber,
		PriceHigh:      opp.PriceHigh,
	}

	// The buy price is re-read after confirmation to capture the execution-time price.
	unit := opp.PriceLow
	if q := m.Oracle.Quote(ctx, opp.Token, opp.LowVenue); q.Available {
		unit = q.USDPrice
	} else {
		m.Logger.Warn(ctx, "buy price unavailable after open, using scan price",
			"symbol", opp.Token.Symbol, "price", unit.String())
	}
	pos.BuyPrice = pos.ValueAt(unit)
	pos.OpenedAt = m.Clock.Now()

	opened, err := m.Book.Open(pos)
	if err != nil {
		// Unreachable unless the book was mutated concurrently.
		return nil, err
	}

	m.metrics.opened.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", string(opp.LowVenue))))
	m.metrics.openPositions.Add(ctx, 1)

	m.Logger.Info(ctx, "position opened",
		"symbol", opened.Symbol,
		"tx", opened.BuyTxHash.Hex(),
		"block", opened.BuyBlockNumber,
		"buy_price", opened.BuyPrice.StringFixed(2),
	)
	return opened, nil
}

func (m *Manager) abortOpen(ctx context.Context, opp *domain.Opportunity, cause error) {
	if err := m.Book.Abort(opp.Token.Address); err != nil {
		m.Logger.Error(ctx, "abort open failed", "symbol", opp.Token.Symbol, "error", err)
	}
	m.metrics.openFailures.Add(ctx, 1)
	m.Logger.Warn(ctx, "open failed, skipping opportunity", "symbol", opp.Token.Symbol, "error", cause)
	if cause != nil {
		m.Reporter.ReportError(fmt.Errorf("open %s: %w", opp.Token.Symbol, cause))
	}
}

// monitor checks the close policy until it fires, then closes. Waits are
// clipped so the timeout fires at MaxHold rather than the next interval.
func (m *Manager) monitor(ctx context.Context, pos *domain.Position) error {
	th := m.cfg.Thresholds
	token := pos.Token()

	for {
		now := m.Clock.Now()
		decision := domain.CheckTimeout(pos, now, th)
		if !decision.Close {
			q := m.Oracle.Quote(ctx, token, pos.SellVenue)
			if q.Available {
				pos.LastSellPrice = q.USDPrice
				m.Book.ObserveSellPrice(pos.TokenAddress, q.USDPrice)
			}
			decision = domain.EvaluateClose(pos, now, q.USDPrice, q.Available, th)
		}

		m.Reporter.ReportPosition(pos, decision)

		if decision.Close {
			m.Logger.Info(ctx, "close condition met",
				"symbol", pos.Symbol,
				"reason", decision.Reason,
				"elapsed", decision.Elapsed.Round(time.Second).String(),
				"profit_pct", decision.ProfitPercent.StringFixed(2),
			)
			return m.close(ctx, pos, decision.Reason)
		}

		m.Logger.Info(ctx, "position held",
			"symbol", pos.Symbol,
			"profit_pct", decision.ProfitPercent.StringFixed(2),
			"elapsed", decision.Elapsed.Round(time.Second).String(),
		)

		wait := m.cfg.CheckInterval
		if remaining := th.MaxHold - decision.Elapsed; remaining < wait {
			wait = remaining
		}
		if err := m.Clock.Wait(ctx, wait); err != nil {
			return m.interrupt(ctx, pos, err)
		}
	}
}

// interrupt hands an open position to the pending store on shutdown so the
// next run closes it.
func (m *Manager) interrupt(ctx context.Context, pos *domain.Position, cause error) error {
	pctx := context.WithoutCancel(ctx)

	pc := domain.PendingClose{
		ID:        m.newID(),
		Position:  *pos.Clone(),
		Reason:    domain.CloseReasonInterrupted,
		FailedAt:  m.Clock.Now(),
		LastError: cause.Error(),
	}
	if err := m.Pending.Put(pctx, pc); err != nil {
		m.Logger.Error(pctx, "failed to persist interrupted position", "symbol", pos.Symbol, "error", err)
	}
	m.Book.Release(pos.TokenAddress)
	m.metrics.openPositions.Add(pctx, -1)

	m.Logger.Warn(pctx, "monitoring interrupted, position queued for close", "symbol", pos.Symbol)
	return cause
}

// close performs OPEN → CLOSING → CLOSED.
func (m *Manager) close(ctx context.Context, pos *domain.Position, reason domain.CloseReason) error {
	ctx, span := m.tracer.Start(ctx, "arbitrage.close",
		trace.WithAttributes(
			attribute.String("symbol", pos.Symbol),
			attribute.String("reason", string(reason)),
		),
	)
	defer span.End()

	if _, err := m.Book.MarkClosing(pos.TokenAddress); err != nil {
		// The tokens are still held, so the close moves to the pending store.
		span.RecordError(err)
		pctx := context.WithoutCancel(ctx)
		m.handleFailedClose(pctx, pos, reason, executionDomain.TradeResult{Err: err}, 0, "")
		m.Book.Release(pos.TokenAddress)
		m.metrics.openPositions.Add(pctx, -1)
		return err
	}

	res := m.Executor.Execute(ctx, m.closeRequest(pos))

	// Persistence below must survive shutdown once the close leg has settled.
	pctx := context.WithoutCancel(ctx)

	if !res.Confirmed {
		m.metrics.closeFailures.Add(pctx, 1)
		m.handleFailedClose(pctx, pos, reason, res, 1, "")
		if _, err := m.Book.Close(pos.TokenAddress); err != nil {
			m.Logger.Error(pctx, "book close failed", "symbol", pos.Symbol, "error", err)
		}
		m.metrics.openPositions.Add(pctx, -1)
		span.SetStatus(codes.Error, "close not confirmed")
		return apperror.New(apperror.CodeTradeSubmitFailed,
			apperror.WithContext("close "+pos.Symbol), apperror.WithCause(res.Err))
	}

	rec := m.settle(pctx, pos, res, reason)

	if _, err := m.Book.Close(pos.TokenAddress); err != nil {
		m.Logger.Error(pctx, "book close failed", "symbol", pos.Symbol, "error", err)
	}
	m.metrics.openPositions.Add(pctx, -1)
	m.metrics.holdDuration.Record(pctx, rec.CloseTime.Sub(rec.OpenTime).Seconds())

	span.SetAttributes(attribute.String("pnl", rec.ProfitOrLoss.StringFixed(2)))
	span.SetStatus(codes.Ok, "closed")
	return nil
}

func (m *Manager) closeRequest(pos *domain.Position) executionDomain.TradeRequest {
	expected := pos.LastSellPrice
	if expected.IsZero() {
		expected = pos.PriceHigh
	}
	return executionDomain.TradeRequest{
		Venue:            pos.SellVenue,
		Token:            pos.TokenAddress,
		Symbol:           pos.Symbol,
		Direction:        executionDomain.DirectionClose,
		AmountIn:         pos.AmountIn,
		ExpectedPriceUSD: expected,
	}
}

// settle prices the confirmed close and appends exactly one ledger record.
func (m *Manager) settle(ctx context.Context, pos *domain.Position, res executionDomain.TradeResult, reason domain.CloseReason) domain.TradeRecord {
	unit := m.sellPrice(ctx, pos)
	rec := domain.NewTradeRecord(m.newID(), pos, res.TxHash.Hex(), unit, m.Clock.Now(), reason)

	if err := m.Ledger.Append(ctx, rec); err != nil {
		m.Logger.Error(ctx, "failed to append trade record", "symbol", pos.Symbol, "error", err)
		m.Reporter.ReportError(err)
		m.alert(ctx, "Trade ledger write failed: "+pos.Symbol, fmt.Sprintf(
			"The close of %s confirmed in %s but could not be written to the ledger.\n\nError: %v",
			pos.Symbol, res.TxHash.Hex(), err))
	}

	pnl, _ := rec.ProfitOrLoss.Float64()
	m.metrics.closed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
	m.metrics.realizedPnL.Add(ctx, pnl)

	m.Logger.Info(ctx, "position closed",
		"symbol", rec.Symbol,
		"reason", reason,
		"sell_tx", rec.SellHash,
		"pnl", rec.ProfitOrLoss.StringFixed(2),
		"pnl_pct", rec.ProfitOrLossPercentage.StringFixed(2),
	)
	m.Reporter.ReportTrade(rec)
	return rec
}

// sellPrice re-reads the sell venue, then falls back to the last monitored
// price, then to the scan-time price.
func (m *Manager) sellPrice(ctx context.Context, pos *domain.Position) decimal.Decimal {
	if q := m.Oracle.Quote(ctx, pos.Token(), pos.SellVenue); q.Available {
		return q.USDPrice
	}
	if pos.LastSellPrice.IsPositive() {
		m.Logger.Warn(ctx, "sell price unavailable, using last monitored price", "symbol", pos.Symbol)
		return pos.LastSellPrice
	}
	m.Logger.Warn(ctx, "sell price unavailable, using scan price", "symbol", pos.Symbol)
	return pos.PriceHigh
}

func (m *Manager) handleFailedClose(ctx context.Context, pos *domain.Position, reason domain.CloseReason, res executionDomain.TradeResult, attempts int, id string) {
	if id == "" {
		id = m.newID()
	}

	lastErr := "close not confirmed"
	if res.Err != nil {
		lastErr = res.Err.Error()
	}

	pc := domain.PendingClose{
		ID:        id,
		Position:  *pos.Clone(),
		Reason:    reason,
		FailedAt:  m.Clock.Now(),
		Attempts:  attempts,
		LastError: lastErr,
	}
	if res.Submitted() {
		pc.LastTxHash = res.TxHash.Hex()
		pc.LastTxAt = pc.FailedAt
	}

	if err := m.Pending.Put(ctx, pc); err != nil {
		m.Logger.Error(ctx, "failed to persist pending close", "symbol", pos.Symbol, "error", err)
	}

	m.Logger.Error(ctx, "close failed, position queued for retry",
		"symbol", pos.Symbol,
		"attempts", attempts,
		"tx", pc.LastTxHash,
		"error", lastErr,
	)
	m.Reporter.ReportError(fmt.Errorf("close %s: %s", pos.Symbol, lastErr))

	m.alert(ctx, "Arbitrage close failed: "+pos.Symbol, pendingAlertBody(pc))
}

// RetryPendingCloses gives every pending close one new attempt. A close
// transaction from an earlier attempt is looked up first: if it confirmed the
// position settles on it, if it may still land the entry waits for the next
// cycle, and only a reverted or dropped transaction is resubmitted.
func (m *Manager) RetryPendingCloses(ctx context.Context) {
	ctx, span := m.tracer.Start(ctx, "arbitrage.retry_pending")
	defer span.End()

	pending, err := m.Pending.List(ctx)
	if err != nil {
		span.RecordError(err)
		m.Logger.Error(ctx, "failed to list pending closes", "error", err)
		return
	}

	span.SetAttributes(attribute.Int("pending", len(pending)))
	remaining := len(pending)

	for _, pc := range pending {
		if ctx.Err() != nil {
			break
		}

		pos := pc.Position
		res, prior := m.reconcile(ctx, pc)

		switch prior {
		case priorPending:
			m.Logger.Info(ctx, "earlier close still pending, waiting",
				"symbol", pos.Symbol,
				"tx", pc.LastTxHash,
			)
			continue
		case priorAbsent:
			m.Logger.Info(ctx, "retrying close",
				"symbol", pos.Symbol,
				"reason", pc.Reason,
				"attempt", pc.Attempts+1,
			)
			res = m.Executor.Execute(ctx, m.closeRequest(&pos))
		case priorConfirmed:
			m.Logger.Info(ctx, "earlier close confirmed",
				"symbol", pos.Symbol,
				"tx", pc.LastTxHash,
				"block", res.BlockNumber,
			)
		}

		pctx := context.WithoutCancel(ctx)

		if !res.Confirmed {
			m.metrics.closeFailures.Add(pctx, 1)
			pc.Attempts++
			pc.FailedAt = m.Clock.Now()
			if res.Err != nil {
				pc.LastError = res.Err.Error()
			}
			pc.LastTxHash, pc.LastTxAt = "", time.Time{}
			if res.Submitted() {
				pc.LastTxHash = res.TxHash.Hex()
				pc.LastTxAt = pc.FailedAt
			}
			if err := m.Pending.Put(pctx, pc); err != nil {
				m.Logger.Error(pctx, "failed to update pending close", "symbol", pos.Symbol, "error", err)
			}
			continue
		}

		m.settle(pctx, &pos, res, pc.Reason)
		if err := m.Pending.Delete(pctx, pos.TokenAddress); err != nil {
			m.Logger.Error(pctx, "failed to delete pending close", "symbol", pos.Symbol, "error", err)
			continue
		}
		remaining--
	}

	m.Reporter.ReportPendingCloses(remaining)
}

type priorClose int

const (
	priorAbsent priorClose = iota
	priorPending
	priorConfirmed
)

// reconcile resolves the outcome of the last close transaction of pc.
func (m *Manager) reconcile(ctx context.Context, pc domain.PendingClose) (executionDomain.TradeResult, priorClose) {
	var none executionDomain.TradeResult
	if pc.LastTxHash == "" || m.Receipts == nil {
		return none, priorAbsent
	}

	hash := common.HexToHash(pc.LastTxHash)
	receipt, err := m.Receipts.TransactionReceipt(ctx, hash)
	switch {
	case errors.Is(err, ethereum.NotFound):
		sentAt := pc.LastTxAt
		if sentAt.IsZero() {
			sentAt = pc.FailedAt
		}
		if m.Clock.Now().Before(sentAt.Add(m.cfg.TxDeadline)) {
			return none, priorPending
		}
		m.Logger.Warn(ctx, "earlier close dropped past its deadline", "symbol", pc.Position.Symbol, "tx", pc.LastTxHash)
		return none, priorAbsent
	case err != nil:
		m.Logger.Warn(ctx, "receipt lookup failed", "symbol", pc.Position.Symbol, "tx", pc.LastTxHash, "error", err)
		return none, priorPending
	case receipt == nil || receipt.BlockNumber == nil:
		return none, priorPending
	case receipt.Status != types.ReceiptStatusSuccessful:
		m.Logger.Warn(ctx, "earlier close reverted", "symbol", pc.Position.Symbol, "tx", pc.LastTxHash)
		return none, priorAbsent
	}

	head, err := m.Receipts.BlockNumber(ctx)
	if err != nil {
		m.Logger.Warn(ctx, "block number lookup failed", "symbol", pc.Position.Symbol, "error", err)
		return none, priorPending
	}

	mined := receipt.BlockNumber.Uint64()
	var confs uint64
	if head >= mined {
		confs = head - mined + 1
	}
	if confs < m.cfg.Confirmations {
		return none, priorPending
	}

	return executionDomain.TradeResult{
		Confirmed:     true,
		TxHash:        hash,
		BlockNumber:   mined,
		Confirmations: confs,
		GasUsed:       receipt.GasUsed,
	}, priorConfirmed
}

// PendingCount returns the size of the pending-close backlog.
func (m *Manager) PendingCount(ctx context.Context) (int, error) {
	list, err := m.Pending.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (m *Manager) hasPendingClose(ctx context.Context, token pricingDomain.Token) bool {
	pc, err := m.Pending.Get(ctx, token.Address)
	if err != nil {
		// Fail closed: an unreadable store must not allow a second position.
		m.Logger.Error(ctx, "pending store lookup failed", "symbol", token.Symbol, "error", err)
		return true
	}
	return pc != nil
}

func (m *Manager) alert(ctx context.Context, subject, body string) {
	if m.Alerter == nil {
		return
	}
	if err := m.Alerter.Alert(ctx, subject, body); err != nil {
		m.Logger.Warn(ctx, "alert delivery failed", "subject", subject, "error", err)
	}
}

func pendingAlertBody(pc domain.PendingClose) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The close leg for %s (%s) did not confirm.\n\n", pc.Position.Symbol, pc.Position.TokenAddress.Hex())
	fmt.Fprintf(&sb, "Reason:      %s\n", pc.Reason)
	fmt.Fprintf(&sb, "Sell venue:  %s\n", pc.Position.SellVenue.DisplayName())
	fmt.Fprintf(&sb, "Amount:      %s\n", pc.Position.Amount().String())
	fmt.Fprintf(&sb, "Buy tx:      %s\n", pc.Position.BuyTxHash.Hex())
	if pc.LastTxHash != "" {
		fmt.Fprintf(&sb, "Close tx:    %s (may still confirm)\n", pc.LastTxHash)
	}
	fmt.Fprintf(&sb, "Attempts:    %d\n", pc.Attempts)
	fmt.Fprintf(&sb, "Error:       %s\n\n", pc.LastError)
	sb.WriteString("The close will be retried at the start of every cycle.\n")
	return sb.String()
}
