// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import "github.com/charmbracelet/lipgloss"

// Palette. Venue colors follow the SushiSwap and Uniswap brands.
var (
	ColorSushi   = lipgloss.Color("#FA52A0")
	ColorUniswap = lipgloss.Color("#FF007A")
	ColorPolygon = lipgloss.Color("#8247E5")
	ColorProfit  = lipgloss.Color("#22C55E")
	ColorLoss    = lipgloss.Color("#F43F5E")
	ColorPending = lipgloss.Color("#FBBF24")
	ColorDim     = lipgloss.Color("#71717A")
	ColorFrame   = lipgloss.Color("#3F3F46")
	ColorText    = lipgloss.Color("#FAFAFA")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Background(ColorPolygon).
			Padding(0, 2)

	// PanelStyle frames the price and position columns.
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorFrame).
			Padding(0, 1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPolygon)

	ProfitStyle = lipgloss.NewStyle().Foreground(ColorProfit)
	LossStyle   = lipgloss.NewStyle().Foreground(ColorLoss)
	DimStyle    = lipgloss.NewStyle().Foreground(ColorDim)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorPending)

	LinkUpStyle   = lipgloss.NewStyle().Foreground(ColorProfit).Bold(true)
	LinkDownStyle = lipgloss.NewStyle().Foreground(ColorLoss).Bold(true)

	// PendingBadge flags unsettled close legs in the status bar.
	PendingBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#18181B")).
			Background(ColorPending).
			Padding(0, 1)

	KeyHelpStyle = lipgloss.NewStyle().
			Foreground(ColorDim).
			Padding(0, 1)
)

// VenueStyle colors a venue label.
func VenueStyle(venue string) lipgloss.Style {
	switch venue {
	case "SushiSwap":
		return lipgloss.NewStyle().Foreground(ColorSushi).Bold(true)
	case "Uniswap":
		return lipgloss.NewStyle().Foreground(ColorUniswap).Bold(true)
	default:
		return DimStyle
	}
}

// PnLStyle picks the profit or loss color for a signed amount.
func PnLStyle(negative bool) lipgloss.Style {
	if negative {
		return LossStyle
	}
	return ProfitStyle
}
