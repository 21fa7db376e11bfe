package app

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

func newTestScanner(t *testing.T, oracle PriceOracle) *Scanner {
	t.Helper()
	s, err := NewScanner(oracle, domain.DefaultThresholds(), 4, newFakeClock(t0), logger.NewDiscard())
	require.NoError(t, err)
	return s
}

func TestScanner_Scan(t *testing.T) {
	matic := pricingDomain.Token{Symbol: "MATIC", Address: common.HexToAddress("0x0000000000000000000000000000000000001010")}
	tokens := []pricingDomain.Token{link, aave, matic}

	oracle := &mockOracle{}
	// LINK: 10 vs 10.5, net 3.878...% → qualifies, buy on SushiSwap.
	oracle.On("Quote", mock.Anything, link, pricingDomain.VenueSushiSwap).Return(available(link, pricingDomain.VenueSushiSwap, "10"))
	oracle.On("Quote", mock.Anything, link, pricingDomain.VenueUniswap).Return(available(link, pricingDomain.VenueUniswap, "10.5"))
	// AAVE: 98 vs 102, net exactly 3% → rejected.
	oracle.On("Quote", mock.Anything, aave, pricingDomain.VenueSushiSwap).Return(available(aave, pricingDomain.VenueSushiSwap, "102"))
	oracle.On("Quote", mock.Anything, aave, pricingDomain.VenueUniswap).Return(available(aave, pricingDomain.VenueUniswap, "98"))
	// MATIC: one side unavailable → dropped.
	oracle.On("Quote", mock.Anything, matic, pricingDomain.VenueSushiSwap).Return(pricingDomain.Unavailable(matic, pricingDomain.VenueSushiSwap))
	oracle.On("Quote", mock.Anything, matic, pricingDomain.VenueUniswap).Return(available(matic, pricingDomain.VenueUniswap, "0.7"))

	opps, snap := newTestScanner(t, oracle).Scan(context.Background(), tokens)

	require.Len(t, opps, 1)
	assert.Equal(t, link, opps[0].Token)
	assert.Equal(t, pricingDomain.VenueSushiSwap, opps[0].LowVenue)
	assert.Equal(t, pricingDomain.VenueUniswap, opps[0].HighVenue)

	require.Len(t, snap.Rows, 3)
	assert.Equal(t, link, snap.Rows[0].Token, "rows keep input order")
	assert.True(t, snap.Rows[0].Qualified)
	assert.False(t, snap.Rows[1].Qualified)
	assert.True(t, snap.Rows[1].NetPercent.Equal(dec("3")))
	assert.False(t, snap.Rows[2].Complete())
	assert.Equal(t, t0, snap.StartedAt)
}

func TestScanner_KeepsInputOrder(t *testing.T) {
	oracle := &mockOracle{}
	for _, tok := range []pricingDomain.Token{link, aave} {
		oracle.On("Quote", mock.Anything, tok, pricingDomain.VenueSushiSwap).Return(available(tok, pricingDomain.VenueSushiSwap, "100"))
		oracle.On("Quote", mock.Anything, tok, pricingDomain.VenueUniswap).Return(available(tok, pricingDomain.VenueUniswap, "90"))
	}

	opps, _ := newTestScanner(t, oracle).Scan(context.Background(), []pricingDomain.Token{aave, link})

	require.Len(t, opps, 2)
	assert.Equal(t, aave, opps[0].Token)
	assert.Equal(t, link, opps[1].Token)
	assert.Equal(t, pricingDomain.VenueUniswap, opps[0].LowVenue)
}

func TestScanner_EmptyTokenList(t *testing.T) {
	opps, snap := newTestScanner(t, &mockOracle{}).Scan(context.Background(), nil)
	assert.Empty(t, opps)
	assert.Empty(t, snap.Rows)
}
