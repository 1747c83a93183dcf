package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/dualbot/config"
	"github.com/alejandrodnm/dualbot/internal/adapters/barcache"
	"github.com/alejandrodnm/dualbot/internal/adapters/binance"
	"github.com/alejandrodnm/dualbot/internal/adapters/notify"
	"github.com/alejandrodnm/dualbot/internal/adapters/storage"
	"github.com/alejandrodnm/dualbot/internal/application/runner"
	"github.com/alejandrodnm/dualbot/internal/ports"
)

func main() {
	os.Exit(run())
}

// run devuelve el código de salida; los defers (sqlite.Close, cancel) se
// ejecutan antes de que main llame a os.Exit.
func run() int {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "do not persist runs to SQLite")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print every closed trade as a table")
	sweepMode := flag.Bool("sweep", false, "evaluate the parameter grid from config instead of a single run")
	csvPath := flag.String("csv", "", "write closed trades to this CSV file")
	history := flag.Int("history", 0, "print the last N stored runs and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		return 1
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("dualbot starting",
		"config", *configPath,
		"symbol", cfg.Backtest.Symbol,
		"bar_interval", cfg.Backtest.BarInterval,
		"lookback", cfg.Lookback(),
		"params", cfg.Strategy.String(),
		"dry_run", *dryRun,
		"sweep", *sweepMode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	console := notify.NewConsole(*table)

	// store queda como interfaz nil en dry-run para que el runner no persista.
	var store ports.RunStorage
	if !*dryRun {
		sqlite, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			return 1
		}
		defer sqlite.Close()
		store = sqlite
	}

	if *history > 0 {
		return printHistory(ctx, store, console, cfg.Backtest.Symbol, *history)
	}

	var cache ports.BarCache
	if cfg.Storage.CacheDir != "" {
		cache = barcache.NewParquetCache(cfg.Storage.CacheDir)
	}

	client := binance.NewClient(cfg.API.BinanceBase)
	r := runner.New(runnerConfig(cfg), client, cache, store, console)

	if *sweepMode {
		return runSweep(ctx, r, console, cfg)
	}

	rec, err := r.Run(ctx)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		return 1
	}

	if *csvPath != "" {
		if err := notify.WriteTradesCSV(*csvPath, rec.Trades); err != nil {
			slog.Error("failed to write csv", "err", err, "path", *csvPath)
			return 1
		}
		slog.Info("trades written", "path", *csvPath, "count", len(rec.Trades))
	}

	slog.Info("dualbot stopped cleanly")
	return 0
}

func runnerConfig(cfg *config.Config) runner.Config {
	rc := runner.DefaultConfig()
	rc.Symbol = cfg.Backtest.Symbol
	rc.SourceInterval = cfg.Backtest.SourceInterval
	rc.BarInterval = cfg.Backtest.BarInterval
	rc.Lookback = cfg.Lookback()
	rc.WarmupBars = cfg.Backtest.WarmupBars
	rc.InitialCapital = cfg.Backtest.InitialCapital
	rc.Params = cfg.Strategy
	rc.Indicators = cfg.Indicators
	rc.SweepWorkers = cfg.Sweep.Workers
	return rc
}

func runSweep(ctx context.Context, r *runner.Runner, console *notify.Console, cfg *config.Config) int {
	slog.Info("=== SWEEP MODE ===")

	outcomes, err := r.Sweep(ctx, cfg.Sweep.Grid)
	if err != nil && len(outcomes) == 0 {
		slog.Error("sweep failed", "err", err)
		return 1
	}
	if err != nil {
		slog.Warn("sweep interrupted, showing partial results", "err", err)
	}

	console.ReportSweep(outcomes, cfg.Sweep.Top)
	slog.Info("sweep complete", "combinations", len(outcomes))
	return 0
}

func printHistory(ctx context.Context, store ports.RunStorage, console *notify.Console, symbol string, n int) int {
	if store == nil {
		slog.Error("-history needs storage, drop -dry-run")
		return 1
	}
	runs, err := store.GetRuns(ctx, symbol, n)
	if err != nil {
		slog.Error("failed to read history", "err", err)
		return 1
	}
	console.PrintHistory(runs)
	return 0
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
