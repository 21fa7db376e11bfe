package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Stats holds session statistics for display.
type Stats struct {
	Scans         int64
	Opportunities int64
	Trades        int64
	Profitable    int64
	RealizedPnL   decimal.Decimal
	PendingCloses int
	Errors        int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the current statistics.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)

	winRate := float64(0)
	if s.stats.Trades > 0 {
		winRate = float64(s.stats.Profitable) / float64(s.stats.Trades) * 100
	}

	pnlStyle := profitStyle
	if s.stats.RealizedPnL.IsNegative() {
		pnlStyle = errorStyle
	}

	pending := valueStyle.Render(fmt.Sprintf("%d", s.stats.PendingCloses))
	if s.stats.PendingCloses > 0 {
		pending = errorStyle.Render(fmt.Sprintf("%d", s.stats.PendingCloses))
	}

	errorsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	if s.stats.Errors > 0 {
		errorsDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Scans: %s  │  Opportunities: %s  │  Trades: %s (%.1f%% won)\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Scans)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Opportunities)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Trades)),
			winRate,
		) +
		fmt.Sprintf("Realized P/L: %s  │  Pending closes: %s  │  Errors: %s",
			pnlStyle.Render("$"+s.stats.RealizedPnL.StringFixed(2)),
			pending,
			errorsDisplay,
		)
}
