// Command analyze runs the full analytics pipeline once over the CSV
// extracts and writes the CSV/JSON/Excel reports.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"shoppulse/internal/analytics"
	"shoppulse/internal/config"
	"shoppulse/internal/dataset"
	"shoppulse/internal/exporter"
)

func main() {
	dataDir := flag.String("data", "", "input directory with the CSV extracts (defaults to configured data dir)")
	outDir := flag.String("out", "", "output directory for reports (defaults to configured reports dir)")
	date := flag.String("date", "", "analysis date YYYY-MM-DD (overrides configured analysis date)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}
	if *outDir != "" {
		cfg.Paths.ReportsDir = *outDir
	}
	if *date != "" {
		cfg.Analysis.Date = *date
	}

	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	ctx := context.Background()
	start := time.Now()

	loader := dataset.NewLoader(cfg.Paths.DataDir, logger)
	tables, err := loader.LoadAll(ctx)
	if err != nil {
		logger.Error("failed to load extracts", "error", err)
		os.Exit(1)
	}

	service, err := analytics.NewService(ctx, cfg, tables, logger)
	if err != nil {
		logger.Error("failed to initialize analytics", "error", err)
		os.Exit(1)
	}

	result, err := service.Run(ctx, time.Time{}, time.Time{})
	if err != nil {
		logger.Error("analytics run failed", "error", err)
		os.Exit(1)
	}

	writer := exporter.NewReportWriter(cfg.Paths.ReportsDir, logger)
	if err := writer.WriteAll(ctx, result); err != nil {
		logger.Error("failed to write reports", "error", err)
		os.Exit(1)
	}

	logger.Info("analysis complete",
		slog.String("run_id", result.RunID),
		slog.Int("customers", len(result.RFM)),
		slog.Int("states", len(result.RegionStats)),
		slog.Duration("elapsed", time.Since(start)))
}
