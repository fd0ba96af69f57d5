package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polytrend/config"
	"github.com/alejandrodnm/polytrend/internal/adapters/httpapi"
	"github.com/alejandrodnm/polytrend/internal/adapters/notify"
	"github.com/alejandrodnm/polytrend/internal/adapters/polymarket"
	"github.com/alejandrodnm/polytrend/internal/adapters/storage"
	"github.com/alejandrodnm/polytrend/internal/engine"
	"github.com/alejandrodnm/polytrend/internal/portfolio"
	"github.com/alejandrodnm/polytrend/internal/trend"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print open positions table each cycle (default: compact 1-line)")
	paused := flag.Bool("paused", false, "start with the workers stopped (arm via POST /api/bot/start)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
		err = nil
	}
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("polytrend starting",
		"config", *configPath,
		"scan_interval", cfg.ScanInterval(),
		"refresh_interval", cfg.RefreshInterval(),
		"once", *once,
		"paused", *paused,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pf, err := buildPortfolio(ctx, cfg, store)
	if err != nil {
		slog.Error("failed to restore portfolio", "err", err)
		os.Exit(1)
	}

	trends := trend.NewTracker(trend.Config{
		MinObservations: cfg.Strategy.TrendMinObservations,
		MinRise:         cfg.Strategy.TrendMinRise,
	})

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	discoveryCfg := polymarket.DefaultDiscoveryConfig()
	discoveryCfg.MinVolume = cfg.Strategy.MinVolume
	discoveryCfg.DaysAhead = cfg.Strategy.DaysAhead
	discovery := polymarket.NewDiscovery(client, discoveryCfg)

	notifier := notify.NewConsole(*table)

	engCfg := engine.Config{
		ScanInterval:         cfg.ScanInterval(),
		RefreshInterval:      cfg.RefreshInterval(),
		EntryYesMin:          cfg.Strategy.EntryYesMin,
		EntryYesMax:          cfg.Strategy.EntryYesMax,
		SizeMinPct:           cfg.Strategy.SizeMinPct,
		SizeMaxPct:           cfg.Strategy.SizeMaxPct,
		MaxVerify:            cfg.Workers.MaxVerifyPerCycle,
		TrendMinObservations: cfg.Strategy.TrendMinObservations,
		HistoryTTL:           cfg.HistoryTTL(),
	}
	eng := engine.New(engCfg, pf, trends, discovery, client, client, store, notifier)

	if *once {
		if err := eng.RunOnce(ctx); err != nil {
			slog.Error("scan cycle failed", "err", err)
			os.Exit(1)
		}
		slog.Info("single cycle complete")
		return
	}

	api := httpapi.NewServer(eng, pf, trends, func() { eng.Start(ctx) })
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "err", err)
			cancel()
		}
	}()

	if !*paused {
		eng.Start(ctx)
	}

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown error", "err", err)
	}

	eng.Stop()

	// Último guardado del estado de capital tras parar los workers.
	pf.Lock()
	state := pf.CapitalState()
	pf.Unlock()
	if err := store.SaveState(shutdownCtx, state); err != nil {
		slog.Warn("final state save failed", "err", err)
	}

	slog.Info("polytrend stopped cleanly")
}

// buildPortfolio restaura el portfolio desde storage, o crea uno nuevo con
// el capital inicial configurado si es el primer arranque.
func buildPortfolio(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage) (*portfolio.Portfolio, error) {
	pfCfg := portfolio.Config{
		MaxPositions:      cfg.Strategy.MaxPositions,
		StopLossDrop:      cfg.Strategy.StopLossDrop,
		Exit1:             cfg.Strategy.Exit1,
		Exit2:             cfg.Strategy.Exit2,
		Exit3:             cfg.Strategy.Exit3,
		MaxRegionExposure: cfg.Strategy.MaxRegionExposure,
		EntryYesMin:       cfg.Strategy.EntryYesMin,
		EntryYesMax:       cfg.Strategy.EntryYesMax,
	}

	state, err := store.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		slog.Info("no persisted state, starting fresh", "capital", cfg.Strategy.CapitalInitial)
		return portfolio.New(pfCfg, cfg.Strategy.CapitalInitial), nil
	}

	open, err := store.LoadOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	closed, err := store.LoadClosedPositions(ctx)
	if err != nil {
		return nil, err
	}
	history, err := store.LoadCapitalHistory(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("portfolio restored",
		"capital_total", state.CapitalTotal,
		"capital_available", state.CapitalAvailable,
		"open", len(open),
		"closed", len(closed),
	)
	return portfolio.Rehydrate(pfCfg, *state, open, closed, history), nil
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
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
