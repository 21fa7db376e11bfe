package app

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	executionDomain "github.com/fd1az/dex-arbitrage-bot/business/execution/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/asset"
)

var (
	t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	link = pricingDomain.Token{Symbol: "LINK", Address: common.HexToAddress("0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39")}
	aave = pricingDomain.Token{Symbol: "AAVE", Address: common.HexToAddress("0xD6DF932A45C0f255f85145f286eA0b292B21C90B")}

	pol = asset.NewAsset(asset.NewNativeAssetID(137), "POL", 18)
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeClock advances on every Wait. cancelAfter > 0 cancels the context
// passed to the Nth Wait.
type fakeClock struct {
	mu          sync.Mutex
	now         time.Time
	waits       []time.Duration
	cancelAfter int
	cancel      context.CancelFunc
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Wait(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	n := len(c.waits)
	c.mu.Unlock()

	if c.cancelAfter > 0 && n >= c.cancelAfter && c.cancel != nil {
		c.cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Quote(ctx context.Context, token pricingDomain.Token, venue pricingDomain.Venue) pricingDomain.Quote {
	args := m.Called(ctx, token, venue)
	return args.Get(0).(pricingDomain.Quote)
}

func available(token pricingDomain.Token, venue pricingDomain.Venue, price string) pricingDomain.Quote {
	return pricingDomain.NewQuote(token, venue, dec(price), t0)
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, req executionDomain.TradeRequest) executionDomain.TradeResult {
	args := m.Called(ctx, req)
	return args.Get(0).(executionDomain.TradeResult)
}

func confirmed(hash string, block uint64) executionDomain.TradeResult {
	return executionDomain.TradeResult{Confirmed: true, TxHash: common.HexToHash(hash), BlockNumber: block, Confirmations: 3}
}

func isDirection(d executionDomain.Direction) any {
	return mock.MatchedBy(func(req executionDomain.TradeRequest) bool { return req.Direction == d })
}

type stubAmounts struct {
	amount asset.Amount
	err    error
	calls  int
}

func (s *stubAmounts) Resolve(context.Context) (asset.Amount, error) {
	s.calls++
	return s.amount, s.err
}

type memLedger struct {
	mu      sync.Mutex
	records []domain.TradeRecord
	err     error
}

func (l *memLedger) Append(_ context.Context, rec domain.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, rec)
	return nil
}

func (l *memLedger) All(context.Context) ([]domain.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.TradeRecord(nil), l.records...), nil
}

type memPending struct {
	mu      sync.Mutex
	entries map[common.Address]domain.PendingClose
}

func newMemPending() *memPending {
	return &memPending{entries: make(map[common.Address]domain.PendingClose)}
}

func (p *memPending) Put(_ context.Context, pc domain.PendingClose) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[pc.Position.TokenAddress] = pc
	return nil
}

func (p *memPending) Get(_ context.Context, token common.Address) (*domain.PendingClose, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc, ok := p.entries[token]
	if !ok {
		return nil, nil
	}
	return &pc, nil
}

func (p *memPending) Delete(_ context.Context, token common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, token)
	return nil
}

func (p *memPending) List(context.Context) ([]domain.PendingClose, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.PendingClose, 0, len(p.entries))
	for _, pc := range p.entries {
		out = append(out, pc)
	}
	return out, nil
}

// fakeReceipts serves receipts from a map; unknown hashes are not found.
type fakeReceipts struct {
	mu       sync.Mutex
	receipts map[common.Hash]*types.Receipt
	head     uint64
	err      error
	lookups  int
}

func newFakeReceipts() *fakeReceipts {
	return &fakeReceipts{receipts: make(map[common.Hash]*types.Receipt)}
}

func (r *fakeReceipts) mined(hash string, block, status uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts[common.HexToHash(hash)] = &types.Receipt{
		Status:      status,
		TxHash:      common.HexToHash(hash),
		BlockNumber: new(big.Int).SetUint64(block),
		GasUsed:     150_000,
	}
}

func (r *fakeReceipts) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.err != nil {
		return nil, r.err
	}
	receipt, ok := r.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (r *fakeReceipts) BlockNumber(context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.head, nil
}

type mockAlerter struct {
	mock.Mock
}

func (m *mockAlerter) Alert(ctx context.Context, subject, body string) error {
	return m.Called(ctx, subject, body).Error(0)
}

// recordingReporter keeps everything it is shown.
type recordingReporter struct {
	mu        sync.Mutex
	scans     []*domain.ScanSnapshot
	decisions []domain.CloseDecision
	trades    []domain.TradeRecord
	errors    []error
	pending   []int
}

func (r *recordingReporter) Start(context.Context) error { return nil }

func (r *recordingReporter) ReportScan(s *domain.ScanSnapshot) {
	r.mu.Lock()
	r.scans = append(r.scans, s)
	r.mu.Unlock()
}

func (r *recordingReporter) ReportPosition(_ *domain.Position, d domain.CloseDecision) {
	r.mu.Lock()
	r.decisions = append(r.decisions, d)
	r.mu.Unlock()
}

func (r *recordingReporter) ReportTrade(rec domain.TradeRecord) {
	r.mu.Lock()
	r.trades = append(r.trades, rec)
	r.mu.Unlock()
}

func (r *recordingReporter) ReportPendingCloses(n int) {
	r.mu.Lock()
	r.pending = append(r.pending, n)
	r.mu.Unlock()
}

func (r *recordingReporter) ReportError(err error) {
	r.mu.Lock()
	r.errors = append(r.errors, err)
	r.mu.Unlock()
}

func (r *recordingReporter) ReportBlock(uint64, float64) {}

func (r *recordingReporter) UpdateConnectionStatus(string, bool, time.Duration) {}

func (r *recordingReporter) Stop() error { return nil }

type stubTokens struct {
	tokens []pricingDomain.Token
	err    error
}

func (s stubTokens) Load(context.Context) ([]pricingDomain.Token, error) {
	return s.tokens, s.err
}
