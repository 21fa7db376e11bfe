// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// PriceRow is one token of the latest scan.
type PriceRow struct {
	Symbol    string
	SushiSwap decimal.Decimal
	Uniswap   decimal.Decimal
	// SushiMissing and UniMissing mark a venue that returned no price.
	SushiMissing bool
	UniMissing   bool
	NetPercent   decimal.Decimal
	Qualified    bool
}

// PricesComponent renders the per-token venue comparison.
type PricesComponent struct {
	rows     []PriceRow
	scanned  time.Time
	duration time.Duration
	maxRows  int
}

// NewPricesComponent creates a new prices component.
func NewPricesComponent(maxRows int) *PricesComponent {
	return &PricesComponent{maxRows: maxRows}
}

// Update replaces the table with the rows of a new scan.
func (p *PricesComponent) Update(rows []PriceRow, scanned time.Time, took time.Duration) {
	p.rows = rows
	p.scanned = scanned
	p.duration = took
}

// View renders the prices component.
func (p *PricesComponent) View() string {
	if len(p.rows) == 0 {
		return "Waiting for the first scan..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("PRICES (%d tokens, %s)", len(p.rows), p.duration.Round(time.Millisecond))))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("  %-8s  %14s  %14s  %9s\n", "Token", "SushiSwap", "Uniswap", "Net"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 51)) + "\n")

	shown := p.rows
	if p.maxRows > 0 && len(shown) > p.maxRows {
		shown = shown[:p.maxRows]
	}

	for _, row := range shown {
		sushi := priceCell(row.SushiSwap, row.SushiMissing)
		uni := priceCell(row.Uniswap, row.UniMissing)

		net := dimStyle.Render(fmt.Sprintf("%9s", "n/a"))
		if !row.SushiMissing && !row.UniMissing {
			cell := fmt.Sprintf("%8s%%", row.NetPercent.StringFixed(2))
			switch {
			case row.Qualified:
				net = positiveStyle.Render(cell)
			case row.NetPercent.IsPositive():
				net = warnStyle.Render(cell)
			default:
				net = dimStyle.Render(cell)
			}
		}

		sb.WriteString(fmt.Sprintf("  %-8s  %14s  %14s  %s\n", row.Symbol, sushi, uni, net))
	}

	if hidden := len(p.rows) - len(shown); hidden > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", hidden)) + "\n")
	}
	return sb.String()
}

func priceCell(price decimal.Decimal, missing bool) string {
	if missing {
		return "-"
	}
	return "$" + price.StringFixed(4)
}
