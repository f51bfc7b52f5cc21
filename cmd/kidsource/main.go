package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shanehull/kidsource/internal/navigate"
	"github.com/shanehull/kidsource/internal/pipeline"
	"github.com/shanehull/kidsource/internal/storage"
)

func main() {
	dbPath := flag.String("db", "out/kidsource.duckdb", "Path to DuckDB file")
	concurrency := flag.Int("concurrency", 3, "Number of browser sessions")
	headless := flag.Bool("headless", true, "Run browsers headless")
	pageCap := flag.Int("page-cap", 30, "Max show-more clicks per subcategory")
	directoryURL := flag.String("directory", "https://www.nvrc.ca/facilities", "Facility directory URL to seed locations (empty to skip)")
	outDir := flag.String("outdir", "out", "Output directory for the database")
	debug := flag.Bool("debug", false, "Enable debug logs")
	flag.Parse()

	// Ensure output directory exists
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}
	if !filepath.IsAbs(*dbPath) && filepath.Dir(*dbPath) == "." {
		*dbPath = filepath.Join(*outDir, *dbPath)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	repo, err := storage.NewDuckDBRepo(*dbPath, logger)
	if err != nil {
		logger.Error("DB connection failed", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()
	if err := repo.Init(ctx); err != nil {
		logger.Error("DB init failed", "err", err)
		os.Exit(1)
	}

	site := navigate.NVRC()
	p := pipeline.New(repo, site, logger)

	result, err := p.Run(ctx, pipeline.Options{
		Concurrency:      *concurrency,
		Headless:         *headless,
		PageCap:          *pageCap,
		GeocoderURL:      os.Getenv("KIDSOURCE_GEOCODER_URL"),
		DirectoryURL:     *directoryURL,
		DirectoryDomains: []string{"www.nvrc.ca", "nvrc.ca"},
	})
	if err != nil {
		os.Exit(1)
	}

	logger.Info("Pipeline Complete",
		"activities", len(result.Activities),
		"found", result.Stats.Found,
		"created", result.Stats.Created,
		"updated", result.Stats.Updated,
		"unchanged", result.Stats.Unchanged,
		"deactivated", result.Stats.Deactivated,
		"errors", result.Stats.Errors)
}
