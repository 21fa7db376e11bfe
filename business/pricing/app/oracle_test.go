package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

var (
	weth = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	link = domain.Token{Symbol: "LINK", Address: common.HexToAddress("0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39")}
)

type mockTokens struct{ mock.Mock }

func (m *mockTokens) TokenPrice(ctx context.Context, token common.Address, exchange string) (decimal.Decimal, error) {
	args := m.Called(ctx, token, exchange)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type mockPairs struct{ mock.Mock }

func (m *mockPairs) Token0Price(ctx context.Context, token0, token1 common.Address) (decimal.Decimal, error) {
	args := m.Called(ctx, token0, token1)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestOracle(t *testing.T, tokens *mockTokens, pairs *mockPairs) *Oracle {
	t.Helper()
	o, err := NewOracle(OracleConfig{
		WETH:            weth,
		UniswapExchange: "uniswapv3",
		WETHPriceTTL:    time.Minute,
	}, tokens, pairs, logger.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return fixed }
	return o
}

func TestOracle_UniswapUsesExchangePrice(t *testing.T) {
	tokens := &mockTokens{}
	tokens.On("TokenPrice", mock.Anything, link.Address, "uniswapv3").Return(dec("14.2"), nil)

	o := newTestOracle(t, tokens, &mockPairs{})
	q := o.Quote(context.Background(), link, domain.VenueUniswap)

	require.True(t, q.Available)
	assert.True(t, q.USDPrice.Equal(dec("14.2")))
	assert.Equal(t, domain.VenueUniswap, q.Venue)
	assert.Equal(t, 2024, q.FetchedAt.Year())
	tokens.AssertExpectations(t)
}

func TestOracle_SushiSwapScalesPoolPrice(t *testing.T) {
	tokens := &mockTokens{}
	tokens.On("TokenPrice", mock.Anything, weth, "").Return(dec("3000"), nil).Once()
	pairs := &mockPairs{}
	pairs.On("Token0Price", mock.Anything, weth, link.Address).Return(dec("0.005"), nil)

	o := newTestOracle(t, tokens, pairs)

	q := o.Quote(context.Background(), link, domain.VenueSushiSwap)
	require.True(t, q.Available)
	assert.True(t, q.USDPrice.Equal(dec("15")), "got %s", q.USDPrice)

	// The reference price is served from cache on the second lookup.
	q = o.Quote(context.Background(), link, domain.VenueSushiSwap)
	require.True(t, q.Available)
	tokens.AssertNumberOfCalls(t, "TokenPrice", 1)
}

func TestOracle_FailuresAreUnavailable(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		venue domain.Venue
		setup func(*mockTokens, *mockPairs)
	}{
		{
			name:  "uniswap api error",
			venue: domain.VenueUniswap,
			setup: func(tk *mockTokens, _ *mockPairs) {
				tk.On("TokenPrice", mock.Anything, link.Address, "uniswapv3").Return(decimal.Zero, boom)
			},
		},
		{
			name:  "uniswap zero price",
			venue: domain.VenueUniswap,
			setup: func(tk *mockTokens, _ *mockPairs) {
				tk.On("TokenPrice", mock.Anything, link.Address, "uniswapv3").Return(decimal.Zero, nil)
			},
		},
		{
			name:  "no sushiswap pair",
			venue: domain.VenueSushiSwap,
			setup: func(_ *mockTokens, p *mockPairs) {
				p.On("Token0Price", mock.Anything, weth, link.Address).Return(decimal.Zero, boom)
			},
		},
		{
			name:  "weth price missing",
			venue: domain.VenueSushiSwap,
			setup: func(tk *mockTokens, p *mockPairs) {
				p.On("Token0Price", mock.Anything, weth, link.Address).Return(dec("0.005"), nil)
				tk.On("TokenPrice", mock.Anything, weth, "").Return(decimal.Zero, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, pairs := &mockTokens{}, &mockPairs{}
			tt.setup(tokens, pairs)

			q := newTestOracle(t, tokens, pairs).Quote(context.Background(), link, tt.venue)

			assert.False(t, q.Available)
			assert.Equal(t, link, q.Token)
			assert.Equal(t, tt.venue, q.Venue)
		})
	}
}

func TestOracle_UnknownVenue(t *testing.T) {
	o := newTestOracle(t, &mockTokens{}, &mockPairs{})
	q := o.Quote(context.Background(), link, domain.Venue("curve"))
	assert.False(t, q.Available)
}
