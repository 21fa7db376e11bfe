package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// TradeRow is one settled round trip.
type TradeRow struct {
	ClosedAt   string
	Symbol     string
	Route      string
	PnL        decimal.Decimal
	PnLPct     decimal.Decimal
	Reason     string
	Profitable bool
}

// TradesComponent renders the most recent settled trades, newest first.
type TradesComponent struct {
	rows    []TradeRow
	maxRows int
	offset  int
}

// NewTradesComponent creates a new trades component.
func NewTradesComponent(maxRows int) *TradesComponent {
	return &TradesComponent{
		rows:    make([]TradeRow, 0),
		maxRows: maxRows,
	}
}

// Add prepends a trade.
func (o *TradesComponent) Add(row TradeRow) {
	o.rows = append([]TradeRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
}

// Clear clears all trades.
func (o *TradesComponent) Clear() {
	o.rows = make([]TradeRow, 0)
	o.offset = 0
}

// ScrollUp moves the window towards newer trades.
func (o *TradesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves the window towards older trades.
func (o *TradesComponent) ScrollDown() {
	if o.offset < len(o.rows)-1 {
		o.offset++
	}
}

// Len returns the number of kept trades.
func (o *TradesComponent) Len() int {
	return len(o.rows)
}

// View renders the trades component.
func (o *TradesComponent) View() string {
	if len(o.rows) == 0 {
		return "No trades closed yet..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	lossStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	result := headerStyle.Render(fmt.Sprintf("TRADES (last %d)\n", o.maxRows))
	result += "┌──────────┬──────────┬──────────────────────┬────────────┬─────────┬─────────┐\n"
	result += "│  Closed  │  Token   │        Route         │    P/L     │   P/L%  │ Reason  │\n"
	result += "├──────────┼──────────┼──────────────────────┼────────────┼─────────┼─────────┤\n"

	const visible = 10
	end := o.offset + visible
	if end > len(o.rows) {
		end = len(o.rows)
	}

	for _, row := range o.rows[o.offset:end] {
		style := lossStyle
		if row.Profitable {
			style = profitStyle
		}

		result += fmt.Sprintf("│ %8s │ %-8s │ %-20s │ %s │ %s │ %-7s │\n",
			row.ClosedAt,
			row.Symbol,
			row.Route,
			style.Render(fmt.Sprintf("%10s", "$"+row.PnL.StringFixed(2))),
			style.Render(fmt.Sprintf("%6s%%", row.PnLPct.StringFixed(2))),
			row.Reason,
		)
	}

	result += "└──────────┴──────────┴──────────────────────┴────────────┴─────────┴─────────┘"
	return result
}
