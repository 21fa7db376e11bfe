// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/dex-arbitrage-bot/pkg/ui/components"
)

// ConnectionInfo holds connection state and latency.
type ConnectionInfo struct {
	Connected bool
	Latency   time.Duration
	LastSeen  time.Time
}

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

var stepOrder = []string{"config", "polygon", "pricing", "wallet"}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	prices    *components.PricesComponent
	trades    *components.TradesComponent
	positions *components.PositionsComponent
	stats     *components.StatsComponent

	keys KeyMap
	help help.Model

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready           bool
	quitting        bool
	paused          bool // Freezes the dashboard, the bot keeps running
	showHelp        bool
	width           int
	height          int
	currentBlock    uint64
	gasPrice        float64
	connectionState map[string]*ConnectionInfo
	lastUpdate      time.Time
	errors          []ErrorEntry // Persistent error panel (last 3)
	logs            []string     // Recent log messages

	// Startup state
	startupComplete bool
	startupSteps    map[string]*StartupStep
	startupTime     time.Time

	// Activity tracking
	activityFeed []string
	lastScanTime time.Time
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		prices:       components.NewPricesComponent(15),
		trades:       components.NewTradesComponent(50),
		positions:    components.NewPositionsComponent(),
		stats:        components.NewStatsComponent(),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		connectionState: map[string]*ConnectionInfo{
			"Polygon": {Connected: false},
			"Moralis": {Connected: false},
		},
		logs:         make([]string, 0, 10),
		errors:       make([]ErrorEntry, 0, 3),
		activityFeed: make([]string, 0, 8),
		startupSteps: map[string]*StartupStep{
			"config":  {Name: "Loading configuration", Status: "pending"},
			"polygon": {Name: "Connecting to Polygon", Status: "pending"},
			"pricing": {Name: "Initializing price sources", Status: "pending"},
			"wallet":  {Name: "Loading wallet", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Called directly: Send() must not be used from within Update.
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.trades.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.trades.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.trades.ScrollDown()
		case key.Matches(msg, m.keys.Errors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case ScanMsg:
		if msg.Snapshot == nil || m.paused {
			break
		}
		s := msg.Snapshot
		m.prices.Update(priceRows(s), s.StartedAt, s.Duration)

		st := m.stats.Stats()
		st.Scans++
		st.Opportunities += int64(len(s.Opportunities))
		m.stats.Update(st)

		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("Scanned %d tokens, %d opportunities", len(s.Rows), len(s.Opportunities)))
		for _, opp := range s.Opportunities {
			m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("%s %s net %s%%",
				opp.Token.Symbol, opp.Direction().String(), opp.NetArbitragePercent.StringFixed(2)))
		}
		m.lastScanTime = time.Now()
		m.lastUpdate = time.Now()

	case PositionMsg:
		if msg.Position == nil {
			break
		}
		p := msg.Position
		m.positions.Update(components.PositionRow{
			Symbol:        p.Symbol,
			Route:         domain.Direction{Buy: p.BuyVenue, Sell: p.SellVenue}.String(),
			State:         string(p.State),
			Elapsed:       msg.Decision.Elapsed,
			MaxHold:       msg.MaxHold,
			ProfitPercent: msg.Decision.ProfitPercent,
			PriceChecked:  msg.Decision.PriceChecked,
		})
		if msg.Decision.Close {
			m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("Closing %s (%s)", p.Symbol, msg.Decision.Reason))
		}
		m.lastUpdate = time.Now()

	case TradeMsg:
		rec := msg.Record
		m.positions.Remove(rec.Symbol)
		m.trades.Add(components.TradeRow{
			ClosedAt:   rec.CloseTime.Local().Format("15:04:05"),
			Symbol:     rec.Symbol,
			Route:      rec.BuyExchange + " → " + rec.Exchange,
			PnL:        rec.ProfitOrLoss,
			PnLPct:     rec.ProfitOrLossPercentage,
			Reason:     string(rec.CloseReason),
			Profitable: rec.IsProfit(),
		})

		st := m.stats.Stats()
		st.Trades++
		if rec.IsProfit() {
			st.Profitable++
		}
		st.RealizedPnL = st.RealizedPnL.Add(rec.ProfitOrLoss)
		m.stats.Update(st)
		m.lastUpdate = time.Now()

	case PendingClosesMsg:
		st := m.stats.Stats()
		st.PendingCloses = msg.Count
		m.stats.Update(st)

	case ConnectionStatusMsg:
		m.connectionState[msg.Name] = &ConnectionInfo{
			Connected: msg.Connected,
			Latency:   msg.Latency,
			LastSeen:  time.Now(),
		}
		m.lastUpdate = time.Now()

		if step, ok := m.startupSteps[strings.ToLower(msg.Name)]; ok {
			if msg.Connected {
				step.Status = "connected"
			} else {
				step.Status = "connecting"
			}
		}
		m.startupSteps["config"].Status = "done"

	case BlockMsg:
		m.currentBlock = msg.Number
		m.lastUpdate = time.Now()

	case GasPriceMsg:
		m.gasPrice = msg.GweiPrice
		m.lastUpdate = time.Now()

	case ErrorMsg:
		if msg.Error == nil {
			break
		}
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}
		st := m.stats.Stats()
		st.Errors++
		m.stats.Update(st)

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		allDone := true
		for _, step := range m.startupSteps {
			if step.Status != "connected" && step.Status != "done" {
				allDone = false
				break
			}
		}
		if allDone {
			m.startupComplete = true
		}
	}

	return m, nil
}

func priceRows(s *domain.ScanSnapshot) []components.PriceRow {
	rows := make([]components.PriceRow, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, components.PriceRow{
			Symbol:       r.Token.Symbol,
			SushiSwap:    r.SushiSwap.USDPrice,
			Uniswap:      r.Uniswap.USDPrice,
			SushiMissing: !r.SushiSwap.Available,
			UniMissing:   !r.Uniswap.Available,
			NetPercent:   r.NetPercent,
			Qualified:    r.Qualified,
		})
	}
	return rows
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logs = append(logs, fmt.Sprintf("[%s] %s: %s", timestamp, level, message))
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// addActivity adds an activity message and returns the updated slice (keeps last 6).
func addActivity(feed []string, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	feed = append(feed, fmt.Sprintf("[%s] %s", timestamp, message))
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		if !m.startupComplete && m.lastScanTime.IsZero() {
			return m.renderStartupScreen()
		}
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" DEX Arbitrage Bot · Polygon "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.prices.View()

	var right strings.Builder
	right.WriteString(m.positions.View())
	right.WriteString("\n\n")
	right.WriteString(m.renderActivityFeed())
	rightCol := right.String()

	if m.width > 100 {
		left := PanelStyle.Width(m.width/2 - 2).Render(leftCol)
		r := PanelStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, r))
	} else {
		b.WriteString(PanelStyle.Width(max(m.width-4, 40)).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(PanelStyle.Width(max(m.width-4, 40)).Render(rightCol))
	}

	b.WriteString("\n")
	b.WriteString(m.trades.View())
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(LossStyle.Bold(true).Render("ERRORS"))
		b.WriteString(DimStyle.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(LossStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(DimStyle.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(WarnStyle.Bold(true).Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(KeyHelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	var sb strings.Builder
	sb.WriteString(SectionStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(DimStyle.Render("  Waiting for the first cycle..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		sb.WriteString(DimStyle.Render("  " + activity))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	sb.WriteString("        " + VenueStyle("SushiSwap").Render("SushiSwap") + SectionStyle.Render(" ⇄ ") + VenueStyle("Uniswap").Render("Uniswap"))
	sb.WriteString("\n")
	sb.WriteString(DimStyle.Render("        P O L Y G O N   A R B I T R A G E"))
	sb.WriteString("\n\n\n")
	sb.WriteString(ProfitStyle.Render(fmt.Sprintf("        Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(DimStyle.Render("        Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartupScreen() string {

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(SectionStyle.Render("  DEX Arbitrage Bot"))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(ColorText).Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range stepOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", ProfitStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon, statusText, style = spinners[idx], "Connecting...", WarnStyle
		case "failed":
			icon, statusText, style = "✗", "Failed", LossStyle
		default:
			icon, statusText, style = "○", "Pending", DimStyle
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n", style.Render(icon), DimStyle.Render(step.Name), style.Render(statusText)))
	}

	sb.WriteString("\n")
	sb.WriteString(DimStyle.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastScanTime) < 2*time.Second {
		parts = append(parts, LinkUpStyle.Render("⟳ Scanning"))
	}

	parts = append(parts, fmt.Sprintf("Block: #%d", m.currentBlock))

	if m.gasPrice > 0 {
		parts = append(parts, fmt.Sprintf("Gas: %.1f gwei", m.gasPrice))
	}

	for _, name := range []string{"Polygon", "Moralis"} {
		info := m.connectionState[name]
		if info != nil && info.Connected {
			status := name
			if info.Latency > 0 {
				status = fmt.Sprintf("%s (%dms)", name, info.Latency.Milliseconds())
			}
			parts = append(parts, LinkUpStyle.Render("● "+status))
		} else {
			parts = append(parts, LinkDownStyle.Render("○ "+name+" (disconnected)"))
		}
	}

	if pnl := m.RealizedPnL(); !pnl.IsZero() {
		parts = append(parts, PnLStyle(pnl.IsNegative()).Render("P&L $"+pnl.StringFixed(2)))
	}

	if n := m.stats.Stats().PendingCloses; n > 0 {
		parts = append(parts, PendingBadge.Render(fmt.Sprintf("%d pending close", n)))
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, DimStyle.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// RealizedPnL returns the session's realized profit or loss.
func (m Model) RealizedPnL() decimal.Decimal {
	return m.stats.Stats().RealizedPnL
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
