package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func dashboard() Model {
	m := New()
	m.phase = PhaseDashboard
	m.startupComplete = true
	m.width = 120
	return m
}

func TestModel_ScanUpdatesPricesAndStats(t *testing.T) {
	link := pricingDomain.Token{Symbol: "LINK", Address: common.HexToAddress("0x01")}
	now := time.Now()

	snap := &domain.ScanSnapshot{
		StartedAt: now,
		Duration:  1200 * time.Millisecond,
		Rows: []domain.ScanRow{{
			Token:      link,
			SushiSwap:  pricingDomain.NewQuote(link, pricingDomain.VenueSushiSwap, decimal.NewFromInt(10), now),
			Uniswap:    pricingDomain.NewQuote(link, pricingDomain.VenueUniswap, decimal.RequireFromString("10.5"), now),
			NetPercent: decimal.RequireFromString("3.878"),
			Qualified:  true,
		}},
		Opportunities: []*domain.Opportunity{{Token: link, LowVenue: pricingDomain.VenueSushiSwap, HighVenue: pricingDomain.VenueUniswap}},
	}

	m := update(t, dashboard(), ScanMsg{Snapshot: snap})

	st := m.stats.Stats()
	assert.Equal(t, int64(1), st.Scans)
	assert.Equal(t, int64(1), st.Opportunities)
	assert.Contains(t, m.View(), "LINK")
}

func TestModel_TradeSettlesPosition(t *testing.T) {
	pos := &domain.Position{Symbol: "LINK", BuyVenue: pricingDomain.VenueSushiSwap, SellVenue: pricingDomain.VenueUniswap, State: domain.StateOpen}

	m := update(t, dashboard(), PositionMsg{Position: pos, MaxHold: time.Hour})
	assert.Equal(t, 1, m.positions.Len())

	m = update(t, m, TradeMsg{Record: domain.TradeRecord{
		Symbol:                 "LINK",
		Exchange:               "Uniswap",
		BuyExchange:            "SushiSwap",
		ProfitOrLoss:           decimal.RequireFromString("-2"),
		ProfitOrLossPercentage: decimal.RequireFromString("-2"),
		CloseTime:              time.Now(),
		CloseReason:            domain.CloseReasonTimeout,
	}})

	assert.Equal(t, 0, m.positions.Len())
	assert.Equal(t, 1, m.trades.Len())
	assert.True(t, m.RealizedPnL().Equal(decimal.NewFromInt(-2)))
	assert.Equal(t, int64(0), m.stats.Stats().Profitable)
}

func TestModel_Keys(t *testing.T) {
	m := update(t, dashboard(), ErrorMsg{Error: errors.New("rpc down")})
	require.Len(t, m.errors, 1)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Empty(t, m.errors)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.True(t, m.paused)
	assert.True(t, strings.Contains(m.View(), "PAUSED"))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, m.quitting)
}

func TestModel_PausedIgnoresScans(t *testing.T) {
	m := dashboard()
	m.paused = true

	m = update(t, m, ScanMsg{Snapshot: &domain.ScanSnapshot{}})
	assert.Equal(t, int64(0), m.stats.Stats().Scans)
}

func TestModel_PendingCloses(t *testing.T) {
	m := update(t, dashboard(), PendingClosesMsg{Count: 2})
	assert.Equal(t, 2, m.stats.Stats().PendingCloses)
}

func TestModel_StatusBarFlagsPendingCloses(t *testing.T) {
	m := dashboard()
	assert.NotContains(t, m.renderStatusBar(), "pending close")

	m = update(t, m, PendingClosesMsg{Count: 1})
	assert.Contains(t, m.renderStatusBar(), "1 pending close")
}

func TestPnLStyle(t *testing.T) {
	assert.Equal(t, LossStyle.GetForeground(), PnLStyle(true).GetForeground())
	assert.Equal(t, ProfitStyle.GetForeground(), PnLStyle(false).GetForeground())
	assert.Equal(t, ColorSushi, VenueStyle("SushiSwap").GetForeground())
	assert.Equal(t, ColorUniswap, VenueStyle("Uniswap").GetForeground())
}
