// Command moisson harvests NFL player career statistics from
// pro-football-reference.com into flat CSV tables.
//
//	moisson discover   build or extend the player roster
//	moisson run        harvest pending players (resumable)
//	moisson status     print progress and recent failures
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/moisson/harvest"
)

func main() {
	// Logging goes to stderr; `moisson status` prints JSON on stdout.
	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "discover":
		err = runDiscover(ctx, os.Args[2:], logger)
	case "run":
		err = runHarvest(ctx, os.Args[2:], logger)
	case "status":
		err = runStatus(ctx, os.Args[2:], logger)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		// An interrupt is a clean stop: the checkpoint design makes the
		// next run pick up where this one left off.
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted")
			return
		}
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func runDiscover(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	dataDir := fs.String("data", "", "data directory (overrides config)")
	baseURL := fs.String("base-url", "", "site root (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := buildConfig(*cfgPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, *dataDir, *baseURL)

	svc, err := harvest.New(*cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()
	return svc.Discover(ctx)
}

func runHarvest(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	dataDir := fs.String("data", "", "data directory (overrides config)")
	baseURL := fs.String("base-url", "", "site root (overrides config)")
	listen := fs.String("listen", "", "status API address, e.g. :8085")
	limit := fs.Int("limit", -1, "stop after N players (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := buildConfig(*cfgPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, *dataDir, *baseURL)
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *limit >= 0 {
		cfg.Limit = *limit
	}

	svc, err := harvest.New(*cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	if cfg.Listen != "" {
		apiCtx, apiCancel := context.WithCancel(ctx)
		apiDone := make(chan error, 1)
		go func() { apiDone <- svc.Serve(apiCtx) }()
		defer func() {
			apiCancel()
			if err := <-apiDone; err != nil {
				logger.Error("status api", "error", err)
			}
		}()
	}

	return svc.Run(ctx)
}

func runStatus(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	dataDir := fs.String("data", "", "data directory (overrides config)")
	player := fs.String("player", "", "show attempt history for one player id")
	limit := fs.Int("limit", 20, "max journal entries to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := buildConfig(*cfgPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, *dataDir, "")

	svc, err := harvest.New(*cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *player != "" {
		history, err := svc.History(ctx, *player, *limit)
		if err != nil {
			return err
		}
		return enc.Encode(history)
	}

	progress, err := svc.Progress()
	if err != nil && !errors.Is(err, harvest.ErrRosterMissing) {
		return err
	}
	totals, err := svc.Totals(ctx)
	if err != nil {
		return err
	}
	failures, err := svc.Failures(ctx, *limit)
	if err != nil {
		return err
	}
	return enc.Encode(map[string]any{
		"roster":          progress,
		"journal":         totals,
		"recent_failures": failures,
	})
}

func buildConfig(path string) (*harvest.Config, error) {
	if path == "" {
		return &harvest.Config{}, nil
	}
	return harvest.LoadConfigFile(path)
}

func applyOverrides(cfg *harvest.Config, dataDir, baseURL string) {
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `moisson - NFL career statistics harvester

Usage:
  moisson discover [-config F] [-data DIR] [-base-url URL]
  moisson run      [-config F] [-data DIR] [-base-url URL] [-listen ADDR] [-limit N]
  moisson status   [-config F] [-data DIR] [-player ID] [-limit N]
`)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
