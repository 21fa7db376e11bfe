// Package main is the entry point for the Polygon DEX arbitrage bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage"
	arbitrageDI "github.com/fd1az/dex-arbitrage-bot/business/arbitrage/di"
	"github.com/fd1az/dex-arbitrage-bot/business/blockchain"
	"github.com/fd1az/dex-arbitrage-bot/business/execution"
	"github.com/fd1az/dex-arbitrage-bot/business/pricing"
	"github.com/fd1az/dex-arbitrage-bot/business/reporting"
	"github.com/fd1az/dex-arbitrage-bot/internal/apm"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/health"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
	"github.com/fd1az/dex-arbitrage-bot/internal/metrics"
	"github.com/fd1az/dex-arbitrage-bot/internal/monolith"
	"github.com/fd1az/dex-arbitrage-bot/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dex-arbitrage-bot %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
		if ui.Program != nil {
			ui.Program.Quit()
		}
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = tuiMode

	log, closeLog, err := newLogger(cfg, tuiMode)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closeLog()

	log.Info(ctx, "starting dex arbitrage bot",
		"version", version,
		"environment", cfg.App.Environment,
		"chain_id", cfg.Chain.ChainID,
	)

	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(shutdownCtx)
	}()

	mono, err := monolith.New(ctx, cfg, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "shutdown cleanup failed", "error", err)
		}
	}()

	// Startup order matters: each module's Startup relies on the previous ones
	// having verified their dependencies.
	modules := []monolith.Module{
		&blockchain.Module{},
		&pricing.Module{},
		&execution.Module{},
		&reporting.Module{},
		&arbitrage.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	start := func(ctx context.Context) error {
		ui.Send(ui.StartupMsg{Step: "config", Status: "done"})
		if err := startModules(ctx, mono, modules); err != nil {
			return err
		}
		return arbitrageDI.GetScheduler(mono.Services()).Start(ctx)
	}
	stop := func() {
		if err := arbitrageDI.GetScheduler(mono.Services()).Stop(); err != nil {
			log.Error(context.Background(), "error stopping scheduler", "error", err)
		}
	}

	if tuiMode {
		return runTUI(ctx, start, stop)
	}
	return runCLI(ctx, start, stop, log)
}

// startModules starts the modules one by one so the TUI startup screen can
// tick each dependency off.
func startModules(ctx context.Context, mono interface {
	StartModules(context.Context, ...monolith.Module) error
}, modules []monolith.Module) error {
	steps := map[int]string{0: "polygon", 1: "pricing"}

	for i, m := range modules {
		step, tracked := steps[i]
		if tracked {
			ui.Send(ui.StartupMsg{Step: step, Status: "connecting"})
		}
		if err := mono.StartModules(ctx, m); err != nil {
			if tracked {
				ui.Send(ui.StartupMsg{Step: step, Status: "failed", Message: err.Error()})
			}
			return fmt.Errorf("failed to start modules: %w", err)
		}
		if tracked {
			ui.Send(ui.StartupMsg{Step: step, Status: "connected"})
		}
	}
	return nil
}

func newLogger(cfg *config.Config, tuiMode bool) (*logger.Logger, func(), error) {
	level := logger.ParseLevel(cfg.App.LogLevel)

	var writers []io.Writer
	closeFn := func() {}

	if cfg.App.LogFile != "" {
		f, err := logger.NewFileWriter(logger.FileConfig{
			Path:       cfg.App.LogFile,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		})
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, f)
		closeFn = func() { _ = f.Close() }
	}
	// The TUI owns the terminal, so stderr is only used in CLI mode.
	if !tuiMode {
		writers = append(writers, os.Stderr)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	return logger.New(w, level, cfg.App.Name, nil), closeFn, nil
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	traceProvider, err := apm.NewTraceProvider(apm.WithConfig(cfg.Telemetry, log))
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.TraceProvider)

	meterProvider, err := metrics.NewMetricProvider(
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	metricsServer := metrics.NewServer(cfg.Telemetry.PrometheusPort, log)
	if err := metricsServer.Start(); err != nil {
		log.Warn(ctx, "failed to start metrics server", "error", err)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Stop(shutdownCtx)
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = traceProvider.Stop()
	}, nil
}

func runCLI(ctx context.Context, start func(context.Context) error, stop func(), log *logger.Logger) error {
	if err := start(ctx); err != nil {
		return err
	}
	log.Info(ctx, "all modules started, trading loop running")

	<-ctx.Done()

	log.Info(context.Background(), "shutting down")
	stop()
	return nil
}

func runTUI(ctx context.Context, start func(context.Context) error, stop func()) error {
	// Quitting the TUI stops the bot as well.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := start(ctx); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		stop()
		errCh <- nil
	}()

	_, runErr := p.Run()
	cancel()
	err := <-errCh

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return err
}
