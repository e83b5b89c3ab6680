package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/api"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/browser"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/cache"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/config"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/harvester"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/output"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/parser"
)

func main() {
	uid := flag.String("uid", "", "space.bilibili.com user id to harvest")
	exclude := flag.String("exclude", "", "path to the media exclusion list (overrides BILIDYN_EXCLUSION_FILE)")
	outDir := flag.String("out", "", "output directory (overrides BILIDYN_OUTPUT_DIR)")
	serve := flag.Bool("serve", false, "run the HTTP API server instead of a one-shot harvest")
	flag.Parse()

	cfg := config.Load()
	if *exclude != "" {
		cfg.Parser.ExclusionFile = *exclude
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}

	initLogger(cfg.Log)

	if *serve {
		runServer(cfg)
		return
	}

	if *uid == "" {
		fmt.Fprintln(os.Stderr, "usage: bilidyn -uid <uid> [-exclude file] [-out dir], or bilidyn -serve")
		os.Exit(2)
	}
	os.Exit(runOnce(cfg, *uid))
}

// runOnce harvests one user's dynamic feed and writes the snapshot, metadata
// and report files. Ctrl-C cancels the harvest between scroll cycles.
func runOnce(cfg *config.Config, uid string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := browser.New(cfg.Browser)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		return 1
	}
	defer b.Close()

	driver, err := b.NewDriver(ctx)
	if err != nil {
		slog.Error("failed to open page", "error", err)
		return 1
	}
	defer driver.Close()

	snap, err := harvester.New(driver, harvester.PolicyFromConfig(cfg.Harvester)).Harvest(ctx, uid)
	if err != nil {
		slog.Error("harvest failed", "uid", uid, "error", err)
		return 1
	}

	exclusions := parser.LoadExclusions(cfg.Parser.ExclusionFile)
	records, err := parser.New(cfg.Parser).Extract(snap, exclusions)
	if err != nil {
		slog.Error("extraction failed", "uid", uid, "error", err)
		return 1
	}

	// Persistence faults are reported but never discard the extracted
	// records: whatever can be written is written.
	exit := 0
	paths, err := output.WriteSnapshot(cfg.Output.Dir, snap)
	if err != nil {
		slog.Error("failed to persist snapshot", "error", err)
		exit = 1
	} else {
		slog.Info("snapshot persisted", "html", paths.HTML, "metadata", paths.Metadata)
	}
	if paths.Report != "" {
		if err := output.WriteReport(paths.Report, snap, records); err != nil {
			slog.Error("failed to persist report", "error", err)
			exit = 1
		} else {
			slog.Info("report persisted", "path", paths.Report, "records", len(records))
		}
	}

	printSummary(snap, records)
	return exit
}

// printSummary gives a quick per-type breakdown on stdout.
func printSummary(snap *models.Snapshot, records []models.DynamicRecord) {
	byType := make(map[models.DynamicType]int)
	for _, rec := range records {
		byType[rec.Type]++
	}
	fmt.Printf("harvested %d dynamics for %s (UID %s)\n", len(records), snap.DisplayName, snap.UID)
	for _, t := range []models.DynamicType{
		models.TypePinned, models.TypeSubmittedVideo, models.TypeDynamicVideo,
		models.TypeImagePost, models.TypeTextPost,
	} {
		if n := byType[t]; n > 0 {
			fmt.Printf("  %-16s %d\n", t.Label(), n)
		}
	}
}

// runServer exposes harvesting over the HTTP API with graceful shutdown.
func runServer(cfg *config.Config) {
	slog.Info("bilidyn starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)

	b, err := browser.New(cfg.Browser)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	cc := cache.New(cfg.Cache.MaxEntries)

	startTime := time.Now()
	router := api.NewRouter(b, cfg, cc, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 10 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// b.Close() runs via defer — kills Chrome.
	slog.Info("bilidyn stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
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
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
