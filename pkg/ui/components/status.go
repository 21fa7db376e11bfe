package components

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// PositionRow is an open position as of its last monitoring check.
type PositionRow struct {
	Symbol        string
	Route         string
	State         string
	Elapsed       time.Duration
	MaxHold       time.Duration
	ProfitPercent decimal.Decimal
	PriceChecked  bool
}

// PositionsComponent renders open positions.
type PositionsComponent struct {
	positions map[string]PositionRow
}

// NewPositionsComponent creates a new positions component.
func NewPositionsComponent() *PositionsComponent {
	return &PositionsComponent{positions: make(map[string]PositionRow)}
}

// Update records a position's latest check.
func (s *PositionsComponent) Update(row PositionRow) {
	s.positions[row.Symbol] = row
}

// Remove drops a settled position.
func (s *PositionsComponent) Remove(symbol string) {
	delete(s.positions, symbol)
}

// Len returns the number of open positions.
func (s *PositionsComponent) Len() int {
	return len(s.positions)
}

// View renders the positions component.
func (s *PositionsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	if len(s.positions) == 0 {
		return headerStyle.Render("POSITIONS") + "\n\n  No open positions"
	}

	positive := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negative := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	symbols := make([]string, 0, len(s.positions))
	for sym := range s.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	result := headerStyle.Render("POSITIONS") + "\n\n"
	for _, sym := range symbols {
		p := s.positions[sym]

		profit := dim.Render("price n/a")
		if p.PriceChecked {
			style := positive
			if p.ProfitPercent.IsNegative() {
				style = negative
			}
			profit = style.Render(fmt.Sprintf("%+.2f%%", p.ProfitPercent.InexactFloat64()))
		}

		result += fmt.Sprintf("├─ %-8s %s  %s  %s\n",
			p.Symbol,
			p.Route,
			profit,
			dim.Render(fmt.Sprintf("%s / %s", p.Elapsed.Round(time.Second), p.MaxHold)),
		)
	}
	return result
}
