package infra

import (
	"context"
	"time"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/dex-arbitrage-bot/pkg/ui"
)

// TUIReporter implements Reporter for Bubble Tea TUI. The program itself is
// owned by main; this adapter only forwards messages.
type TUIReporter struct {
	maxHold time.Duration
	send    func(msg any)
}

// NewTUIReporter creates a new TUIReporter.
func NewTUIReporter(maxHold time.Duration) *TUIReporter {
	return &TUIReporter{
		maxHold: maxHold,
		send:    func(msg any) { ui.Send(msg) },
	}
}

// Start marks the trading loop as ready in the startup screen.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.StartupMsg{Step: "wallet", Status: "done"})
	return nil
}

// ReportScan sends a scan snapshot to the TUI.
func (r *TUIReporter) ReportScan(s *domain.ScanSnapshot) {
	r.send(ui.ScanMsg{Snapshot: s})
}

// ReportPosition sends a monitoring check to the TUI.
func (r *TUIReporter) ReportPosition(pos *domain.Position, d domain.CloseDecision) {
	r.send(ui.PositionMsg{Position: pos.Clone(), Decision: d, MaxHold: r.maxHold})
}

// ReportTrade sends a settled trade to the TUI.
func (r *TUIReporter) ReportTrade(rec domain.TradeRecord) {
	r.send(ui.TradeMsg{Record: rec})
}

// ReportPendingCloses sends the backlog size to the TUI.
func (r *TUIReporter) ReportPendingCloses(count int) {
	r.send(ui.PendingClosesMsg{Count: count})
}

// ReportError sends a non-fatal error to the TUI.
func (r *TUIReporter) ReportError(err error) {
	if err == nil {
		return
	}
	r.send(ui.ErrorMsg{Error: err})
}

// ReportBlock sends the chain head and gas price to the TUI.
func (r *TUIReporter) ReportBlock(number uint64, gasPriceGwei float64) {
	r.send(ui.BlockMsg{Number: number, Timestamp: time.Now()})
	if gasPriceGwei > 0 {
		r.send(ui.GasPriceMsg{GweiPrice: gasPriceGwei})
	}
}

// UpdateConnectionStatus sends connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// Stop is a no-op: the program is stopped by main.
func (r *TUIReporter) Stop() error {
	return nil
}
