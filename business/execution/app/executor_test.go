package app

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	blockchainDomain "github.com/fd1az/dex-arbitrage-bot/business/blockchain/domain"
	"github.com/fd1az/dex-arbitrage-bot/business/execution/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
	"github.com/fd1az/dex-arbitrage-bot/internal/wallet"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() ExecutorConfig {
	return ExecutorConfig{
		GasLimit:            8_000_000,
		GasPrice:            blockchainDomain.GweiToWei(60),
		Deadline:            20 * time.Minute,
		Confirmations:       3,
		ConfirmationTimeout: time.Second,
		ReceiptPollInterval: time.Millisecond,
		SlippageProtection:  true,
		SlippageBps:         50,
		WETH:                weth,
		Routers: map[pricingDomain.Venue]common.Address{
			pricingDomain.VenueSushiSwap: sushiRouter,
			pricingDomain.VenueUniswap:   uniRouter,
		},
	}
}

func newExecutor(t *testing.T, cfg ExecutorConfig, chain *fakeChain, contracts *mockContracts) *Executor {
	t.Helper()
	signer, err := wallet.NewSigner(testKey, 137)
	require.NoError(t, err)

	e, err := NewExecutor(cfg, chain, contracts, signer, fixedGas{}, logger.NewDiscard())
	require.NoError(t, err)
	e.now = func() time.Time { return t0 }
	return e
}

func openRequest() domain.TradeRequest {
	return domain.TradeRequest{
		Venue:            pricingDomain.VenueSushiSwap,
		Token:            link,
		Symbol:           "LINK",
		Direction:        domain.DirectionOpen,
		AmountIn:         big.NewInt(1000),
		ExpectedPriceUSD: decimal.NewFromInt(14),
	}
}

func TestExecute_ConfirmsSwap(t *testing.T) {
	chain := newFakeChain()
	contracts := &mockContracts{}
	path := []common.Address{link, weth}
	deadline := t0.Add(20 * time.Minute).Unix()

	contracts.On("Allowance", mock.Anything, link, owner, sushiRouter).Return(big.NewInt(1000), nil)
	contracts.On("AmountsOut", mock.Anything, sushiRouter, bigEq(1000), path).
		Return([]*big.Int{big.NewInt(1000), big.NewInt(2000)}, nil)
	contracts.On("PackSwap", bigEq(1000), bigEq(1990), path, owner, bigEq(deadline)).
		Return([]byte{0xde, 0xad}, nil)

	res := newExecutor(t, testConfig(), chain, contracts).Execute(context.Background(), openRequest())

	require.True(t, res.Confirmed, "err: %v", res.Err)
	assert.NoError(t, res.Err)
	assert.GreaterOrEqual(t, res.Confirmations, uint64(3))
	assert.Equal(t, uint64(150_000), res.GasUsed)
	assert.Equal(t, int64(1990), res.MinAmountOut.Int64())

	sent := chain.sentTxs()
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Equal(t, res.TxHash, tx.Hash())
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())
	assert.Equal(t, uint64(4), tx.Nonce())
	assert.Equal(t, uint64(8_000_000), tx.Gas())
	assert.Equal(t, 0, tx.GasPrice().Cmp(blockchainDomain.GweiToWei(60)))
	assert.Equal(t, sushiRouter, *tx.To())
	assert.Equal(t, []byte{0xde, 0xad}, tx.Data())
	contracts.AssertExpectations(t)
}

func TestExecute_ApprovesBeforeSwap(t *testing.T) {
	chain := newFakeChain()
	contracts := &mockContracts{}
	closePath := []common.Address{weth, link}

	contracts.On("Allowance", mock.Anything, weth, owner, uniRouter).Return(big.NewInt(0), nil)
	contracts.On("PackApprove", uniRouter, math.MaxBig256).Return([]byte{0xaa}, nil)
	contracts.On("AmountsOut", mock.Anything, uniRouter, bigEq(1000), closePath).
		Return([]*big.Int{big.NewInt(1000), big.NewInt(50)}, nil)
	contracts.On("PackSwap", bigEq(1000), mock.Anything, closePath, owner, mock.Anything).
		Return([]byte{0xbb}, nil)

	req := openRequest()
	req.Venue = pricingDomain.VenueUniswap
	req.Direction = domain.DirectionClose

	res := newExecutor(t, testConfig(), chain, contracts).Execute(context.Background(), req)
	require.True(t, res.Confirmed, "err: %v", res.Err)

	sent := chain.sentTxs()
	require.Len(t, sent, 2)
	assert.Equal(t, weth, *sent[0].To(), "approval goes to the input token")
	assert.Equal(t, uint64(4), sent[0].Nonce())
	assert.Equal(t, uniRouter, *sent[1].To())
	assert.Equal(t, uint64(5), sent[1].Nonce())
}

func TestExecute_SlippageDisabled(t *testing.T) {
	chain := newFakeChain()
	contracts := &mockContracts{}
	cfg := testConfig()
	cfg.SlippageProtection = false

	contracts.On("Allowance", mock.Anything, link, owner, sushiRouter).Return(math.MaxBig256, nil)
	contracts.On("PackSwap", bigEq(1000), bigEq(0), mock.Anything, owner, mock.Anything).Return([]byte{0x01}, nil)

	res := newExecutor(t, cfg, chain, contracts).Execute(context.Background(), openRequest())

	require.True(t, res.Confirmed, "err: %v", res.Err)
	contracts.AssertNotCalled(t, "AmountsOut", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*fakeChain, *mockContracts)
		wantCode  apperror.Code
		submitted bool
	}{
		{
			name: "quote_failure_sends_nothing",
			setup: func(_ *fakeChain, c *mockContracts) {
				c.On("Allowance", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(big.NewInt(1000), nil)
				c.On("AmountsOut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("no pair"))
			},
			wantCode: apperror.CodeSlippageQuoteFailed,
		},
		{
			name: "insufficient_gas_balance",
			setup: func(f *fakeChain, _ *mockContracts) {
				f.balance = big.NewInt(1)
			},
			wantCode: apperror.CodeInsufficientBalance,
		},
		{
			name: "broadcast_rejected",
			setup: func(f *fakeChain, c *mockContracts) {
				f.sendErr = errors.New("nonce too low")
				c.On("Allowance", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(big.NewInt(1000), nil)
				c.On("AmountsOut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return([]*big.Int{big.NewInt(1000), big.NewInt(10)}, nil)
				c.On("PackSwap", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
			},
			wantCode: apperror.CodeTradeSubmitFailed,
		},
		{
			name: "reverted",
			setup: func(f *fakeChain, c *mockContracts) {
				f.status = types.ReceiptStatusFailed
				c.On("Allowance", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(big.NewInt(1000), nil)
				c.On("AmountsOut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return([]*big.Int{big.NewInt(1000), big.NewInt(10)}, nil)
				c.On("PackSwap", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
			},
			wantCode:  apperror.CodeTradeReverted,
			submitted: true,
		},
		{
			name: "never_mined",
			setup: func(f *fakeChain, c *mockContracts) {
				f.mine = false
				c.On("Allowance", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(big.NewInt(1000), nil)
				c.On("AmountsOut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return([]*big.Int{big.NewInt(1000), big.NewInt(10)}, nil)
				c.On("PackSwap", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
			},
			wantCode:  apperror.CodeConfirmationTimeout,
			submitted: true,
		},
		{
			name: "approval_not_mined",
			setup: func(f *fakeChain, c *mockContracts) {
				f.mine = false
				c.On("Allowance", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(big.NewInt(0), nil)
				c.On("PackApprove", mock.Anything, mock.Anything).Return([]byte{0xaa}, nil)
			},
			wantCode: apperror.CodeApprovalFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			contracts := &mockContracts{}
			tt.setup(chain, contracts)

			cfg := testConfig()
			cfg.ConfirmationTimeout = 50 * time.Millisecond

			res := newExecutor(t, cfg, chain, contracts).Execute(context.Background(), openRequest())

			assert.False(t, res.Confirmed)
			require.Error(t, res.Err)
			assert.True(t, apperror.HasCode(res.Err, tt.wantCode), "got %v", res.Err)
			assert.Equal(t, tt.submitted, res.Submitted())
		})
	}
}

func TestExecute_RecoversPanic(t *testing.T) {
	chain := newFakeChain()
	contracts := &mockContracts{}
	contracts.On("Allowance", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("abi exploded") }).
		Return(big.NewInt(0), nil)

	res := newExecutor(t, testConfig(), chain, contracts).Execute(context.Background(), openRequest())

	assert.False(t, res.Confirmed)
	assert.True(t, apperror.HasCode(res.Err, apperror.CodeInternalError))
}

func TestExecute_RejectsBadRequests(t *testing.T) {
	e := newExecutor(t, testConfig(), newFakeChain(), &mockContracts{})

	req := openRequest()
	req.Venue = "pancakeswap"
	assert.True(t, apperror.HasCode(e.Execute(context.Background(), req).Err, apperror.CodeInvalidInput))

	req = openRequest()
	req.AmountIn = big.NewInt(0)
	assert.True(t, apperror.HasCode(e.Execute(context.Background(), req).Err, apperror.CodeInvalidInput))
}

func TestConfirmationsAt(t *testing.T) {
	assert.Equal(t, uint64(1), confirmationsAt(100, 100))
	assert.Equal(t, uint64(3), confirmationsAt(102, 100))
	assert.Equal(t, uint64(0), confirmationsAt(99, 100))
}
