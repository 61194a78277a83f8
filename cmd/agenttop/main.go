package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agenttop/agenttop/internal/alerts"
	"github.com/agenttop/agenttop/internal/config"
	"github.com/agenttop/agenttop/internal/dashboard"
	"github.com/agenttop/agenttop/internal/ingest"
	"github.com/agenttop/agenttop/internal/storage"
	"github.com/agenttop/agenttop/internal/term"
	"github.com/agenttop/agenttop/internal/tui"
)

const statsSnapshotInterval = 60 * time.Second

func main() {
	configFlag := flag.String("config", "", "Path to config file (default: ~/.config/agenttop/config.toml)")
	demoFlag := flag.Bool("demo", false, "Generate synthetic telemetry instead of listening for a runtime")
	flag.Parse()

	var loadResult *config.LoadResult
	var err error
	if *configFlag != "" {
		loadResult, err = config.LoadFrom(*configFlag)
	} else {
		loadResult, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "agenttop: config error: %v\n", err)
		os.Exit(1)
	}
	cfg := loadResult.Config

	for _, w := range loadResult.Warnings {
		fmt.Fprintf(os.Stderr, "agenttop: config warning: %s\n", w)
	}

	store := storage.NewFromConfig(cfg.Storage)
	isPersistent := store != nil

	screen := term.NewScreen(80, 24)

	opts := []dashboard.Option{
		dashboard.WithRenderer(screen),
		dashboard.WithSizeFunc(screen.Size),
	}
	engineOpts := []dashboard.EngineOption{
		dashboard.WithAlertNotifier(alerts.NewPlatformNotifier(cfg.Alerts.SystemNotify)),
	}
	if store != nil {
		opts = append(opts, dashboard.WithHistorySink(store))
		engineOpts = append(engineOpts, dashboard.WithAlertPersister(store))
	}

	dash := dashboard.New(cfg, opts, engineOpts...)
	dash.LoadHistory()
	dash.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// The TUI owns the terminal from here on.
	log.SetOutput(io.Discard)

	var recv *ingest.Receiver
	if *demoFlag {
		go runDemo(ctx, dash)
	} else if cfg.Receiver.GRPCPort > 0 {
		recv = ingest.NewReceiver(cfg.Receiver, dash)
		if err := recv.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "agenttop: failed to start receiver: %v\n", err)
			os.Exit(1)
		}
	}

	if store != nil {
		go snapshotLoop(ctx, dash, store)
	}

	// Reachable from both the quit key and the signal goroutine.
	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			cancel()
			if recv != nil {
				recv.Stop()
			}
			dash.Close()
			if store != nil {
				_ = store.Close()
			}
		})
	}

	model := tui.NewModel(cfg, dash, screen,
		tui.WithPersistenceFlag(isPersistent),
		tui.WithOnShutdown(shutdown),
	)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
	)

	go func() {
		select {
		case <-sigCh:
			shutdown()
			p.Quit()
		case <-ctx.Done():
			return
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "agenttop: %v\n", err)
		os.Exit(1)
	}
}

// snapshotLoop periodically persists a stats snapshot for later analysis.
func snapshotLoop(ctx context.Context, dash *dashboard.Dashboard, store *storage.Store) {
	ticker := time.NewTicker(statsSnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.WriteStatsSnapshot(dash.Stats())
		}
	}
}
