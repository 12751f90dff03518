package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fr0stylo/adsync/internal/app/domain"
	appservices "github.com/fr0stylo/adsync/internal/app/services"
	"github.com/fr0stylo/adsync/internal/bootstrap"
	"github.com/fr0stylo/adsync/internal/config"
	"github.com/fr0stylo/adsync/internal/db"
	"github.com/fr0stylo/adsync/internal/observability"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitBrandFailed = 2
)

type runFlags struct {
	dbPath  string
	brandID string
	pageID  string
	dryRun  bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.LoadForTool()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var flags runFlags
	flag.StringVar(&flags.dbPath, "db", cfg.Database.Path, "database path without .sqlite suffix")
	flag.StringVar(&flags.brandID, "brand", "", "sync only this brand id")
	flag.StringVar(&flags.pageID, "page", "", "sync the brand owning this page id (or override the page of -brand)")
	flag.BoolVar(&flags.dryRun, "dry-run", false, "fetch and report without enqueuing or moving watermarks")
	flag.Parse()

	logger := observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, flags, os.Stdout, logger)
	stop()
	os.Exit(code)
}

// run returns the process exit code so every deferred close completes before exit.
func run(ctx context.Context, cfg config.Config, flags runFlags, out io.Writer, logger *slog.Logger) int {
	database, err := db.New(flags.dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		return exitError
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}()

	syncer, closeQueue, err := bootstrap.NewSyncer(ctx, cfg, database, logger)
	if err != nil {
		logger.Error("wire syncer", "error", err)
		return exitError
	}
	defer func() {
		if err := closeQueue(); err != nil {
			logger.Warn("close queue", "error", err)
		}
	}()

	opts := appservices.RunOptions{DryRun: flags.dryRun}
	var result domain.RunResult
	if flags.brandID != "" || flags.pageID != "" {
		result, err = syncer.RunOne(ctx, appservices.BrandSelector{BrandID: flags.brandID, PageID: flags.pageID}, opts)
	} else {
		result, err = syncer.RunAll(ctx, opts)
	}
	if err != nil {
		logger.Error("sync run", "error", err)
		return exitError
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("encode result", "error", err)
		return exitError
	}

	if cfg.Database.LogTiming {
		for _, stat := range database.QueryLatencyStats() {
			logger.Info("query latency", "query", stat.Name, "table", stat.Table, "count", stat.Count, "errors", stat.Errors, "p50", stat.P50, "p95", stat.P95, "max", stat.Max)
		}
	}
	if result.BrandsFailed > 0 {
		return exitBrandFailed
	}
	return exitOK
}
