// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import (
	"time"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
)

// Message types for TUI updates

// ScanMsg is sent after every scan cycle.
type ScanMsg struct {
	Snapshot *domain.ScanSnapshot
}

// PositionMsg is sent after every monitoring check of an open position.
type PositionMsg struct {
	Position *domain.Position
	Decision domain.CloseDecision
	MaxHold  time.Duration
}

// TradeMsg is sent when a round trip settles.
type TradeMsg struct {
	Record domain.TradeRecord
}

// PendingClosesMsg carries the size of the pending-close backlog.
type PendingClosesMsg struct {
	Count int
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new block is received.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// GasPriceMsg is sent when gas price is updated.
type GasPriceMsg struct {
	GweiPrice float64
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed"
	Message string // Optional message
}
