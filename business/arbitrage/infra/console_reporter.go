// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
)

var (
	profitStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo writes to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Arbitrage Bot Started")
	fmt.Fprintln(r.out, "======================")
	return nil
}

// ReportScan prints qualifying opportunities of a scan.
func (r *ConsoleReporter) ReportScan(s *domain.ScanSnapshot) {
	if s == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	complete := 0
	for _, row := range s.Rows {
		if row.Complete() {
			complete++
		}
	}

	fmt.Fprintf(r.out, "[%s] scanned %d tokens (%d priced on both venues) in %s, %d opportunities\n",
		s.StartedAt.Format("15:04:05"), len(s.Rows), complete, s.Duration.Round(time.Millisecond), len(s.Opportunities))

	for _, opp := range s.Opportunities {
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY")
		fmt.Fprintf(r.out, "Token:          %s (%s)\n", opp.Token.Symbol, opp.Token.Address.Hex())
		fmt.Fprintf(r.out, "Direction:      %s\n", opp.Direction().String())
		fmt.Fprintf(r.out, "  %-12s  $%s\n", opp.LowVenue.DisplayName()+":", opp.PriceLow.String())
		fmt.Fprintf(r.out, "  %-12s  $%s\n", opp.HighVenue.DisplayName()+":", opp.PriceHigh.String())
		fmt.Fprintf(r.out, "Spread:         %s%% (net %s%%)\n", opp.ArbitragePercent.StringFixed(2), opp.NetArbitragePercent.StringFixed(2))
	}
}

// ReportPosition prints one monitoring check.
func (r *ConsoleReporter) ReportPosition(pos *domain.Position, d domain.CloseDecision) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profit := mutedStyle.Render("price unavailable")
	if d.PriceChecked {
		profit = pnlStyle(d.ProfitPercent.IsNegative()).Render(d.ProfitPercent.StringFixed(2) + "%")
	}

	action := "hold"
	if d.Close {
		action = "close (" + string(d.Reason) + ")"
	}

	fmt.Fprintf(r.out, "[%s] %s %s → %s  held %s  P/L %s  %s\n",
		time.Now().Format("15:04:05"),
		pos.Symbol,
		pos.BuyVenue.DisplayName(),
		pos.SellVenue.DisplayName(),
		d.Elapsed.Round(time.Second),
		profit,
		action,
	)
}

// ReportTrade prints a settled round trip.
func (r *ConsoleReporter) ReportTrade(rec domain.TradeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	style := pnlStyle(!rec.IsProfit())

	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "TRADE CLOSED")
	fmt.Fprintf(r.out, "Token:          %s\n", rec.Symbol)
	fmt.Fprintf(r.out, "Route:          %s → %s\n", rec.BuyExchange, rec.Exchange)
	fmt.Fprintf(r.out, "Amount:         %s\n", rec.AmountTraded.String())
	fmt.Fprintf(r.out, "Buy:            $%s  %s\n", rec.BuyPrice.StringFixed(2), rec.BuyHash)
	fmt.Fprintf(r.out, "Sell:           $%s  %s\n", rec.SellPrice.StringFixed(2), rec.SellHash)
	fmt.Fprintf(r.out, "Reason:         %s\n", rec.CloseReason)
	fmt.Fprintf(r.out, "P/L:            %s\n", style.Render(fmt.Sprintf("$%s (%s%%)",
		rec.ProfitOrLoss.StringFixed(2), rec.ProfitOrLossPercentage.StringFixed(2))))
	fmt.Fprintln(r.out, "================================================================================")
}

// ReportPendingCloses prints the pending-close backlog when it is not empty.
func (r *ConsoleReporter) ReportPendingCloses(count int) {
	if count == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, lossStyle.Render(fmt.Sprintf("%d position(s) awaiting a successful close", count)))
}

// ReportError prints a non-fatal error.
func (r *ConsoleReporter) ReportError(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s %v\n", time.Now().Format("15:04:05"), lossStyle.Render("error:"), err)
}

// ReportBlock prints a heartbeat every hundredth block.
func (r *ConsoleReporter) ReportBlock(number uint64, gasPriceGwei float64) {
	if number%100 != 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, mutedStyle.Render(fmt.Sprintf("[%s] block %d, gas %.1f gwei",
		time.Now().Format("15:04:05"), number, gasPriceGwei)))
}

// UpdateConnectionStatus outputs connection status changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency)
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Bot Stopped")
	return nil
}

func pnlStyle(negative bool) lipgloss.Style {
	if negative {
		return lossStyle
	}
	return profitStyle
}
