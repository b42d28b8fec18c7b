package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledgerdash/internal/cli"
	"ledgerdash/internal/dataset"
	apphttp "ledgerdash/internal/http"
	"ledgerdash/internal/log"
	"ledgerdash/internal/report"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, os.Stdout)

	store := dataset.New(cfg.DataFile, dataset.Options{Logger: logger})

	// Warm the dataset so the first page is fast. A failure is not fatal:
	// data routes answer 503 until POST /reload succeeds.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), time.Minute)
	if _, err := store.Get(warmCtx); err != nil {
		logger.Error("Initial dataset load failed", log.FieldSource, cfg.DataFile, log.FieldError, err)
	}
	cancelWarm()

	srv := apphttp.NewServer(cfg.Addr(), store, apphttp.Options{
		Logger:   logger,
		Currency: cfg.Currency,
		Report: report.Options{
			Granularity:   report.Monthly,
			TopCategories: cfg.TopCategories,
			TopMerchants:  cfg.TopMerchants,
			RowLimit:      cfg.TableRowLimit,
		},
		ViewCacheSize: cfg.ViewCacheSize,
		ViewCacheTTL:  cfg.ViewCacheTTL,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting ledgerdash server",
		log.FieldOperation, log.OpStartup, "addr", cfg.Addr(), log.FieldSource, cfg.DataFile)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "addr", cfg.Addr())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
