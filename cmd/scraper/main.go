package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-cycling/config"
	"github.com/aluiziolira/go-scrape-cycling/models"
	"github.com/aluiziolira/go-scrape-cycling/pipeline"
	"github.com/aluiziolira/go-scrape-cycling/scraper"
)

func main() {
	defaultCfg := config.DefaultConfig()

	yearsDefault := intsToCSV(defaultCfg.Years)
	if value, ok := config.EnvString("SCRAPER_YEARS"); ok {
		yearsDefault = value
	}
	circuitsDefault := circuitsToCSV(defaultCfg.Circuits)
	if value, ok := config.EnvString("SCRAPER_CIRCUITS"); ok {
		circuitsDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	years := flag.String("years", yearsDefault, "Comma-separated seasons to harvest")
	circuits := flag.String("circuits", circuitsDefault, "Comma-separated circuit codes (1=World Tour, 2=Pro Series)")
	intervalMs := flag.Int("interval", int(defaultCfg.MinRequestInterval/time.Millisecond), "Minimum delay between requests (milliseconds)")
	timeoutMs := flag.Int("timeout", int(defaultCfg.Timeout/time.Millisecond), "Request timeout (milliseconds)")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum retry attempts per page")
	retryBackoffMs := flag.Int("retry-backoff", int(defaultCfg.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(defaultCfg.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	exclude := flag.String("exclude", "", "Result pages to skip, as slug:year:stage entries separated by commas")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Base URL of the statistics site")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg, err := buildConfig(defaultCfg, *years, *circuits, *intervalMs, *timeoutMs, *maxRetries,
		*retryBackoffMs, *retryBackoffMaxMs, *exclude, *outputFile, *outputFormat, *verbose, *baseURL, *metricsAddr)
	if err != nil {
		slog.Error("invalid flags", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting harvest",
		slog.String("base_url", cfg.BaseURL),
		slog.String("years", *years),
		slog.String("circuits", *circuits),
		slog.Duration("interval", cfg.MinRequestInterval),
	)

	fetcher, err := scraper.NewFetcher(cfg)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current page")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(fetcher.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	runner := pipeline.NewRunner(cfg, fetcher)
	dataset, summary, err := runner.Run(ctx)
	if err != nil {
		slog.Error("harvest failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Write(dataset.Rows); err != nil {
		slog.Error("writing output failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(summary, cfg.OutputFile)
	if summary.Cancelled {
		os.Exit(130)
	}
}

func buildConfig(cfg *config.Config, years, circuits string, intervalMs, timeoutMs, maxRetries,
	retryBackoffMs, retryBackoffMaxMs int, exclude, outputFile, outputFormat string,
	verbose bool, baseURL, metricsAddr string,
) (*config.Config, error) {
	parsedYears, err := parseIntList(years)
	if err != nil {
		return nil, fmt.Errorf("parse years: %w", err)
	}
	cfg.Years = parsedYears

	parsedCircuits, err := parseIntList(circuits)
	if err != nil {
		return nil, fmt.Errorf("parse circuits: %w", err)
	}
	cfg.Circuits = cfg.Circuits[:0]
	for _, code := range parsedCircuits {
		cfg.Circuits = append(cfg.Circuits, models.Circuit(code))
	}

	excluded, err := parseExclusions(exclude)
	if err != nil {
		return nil, fmt.Errorf("parse exclusions: %w", err)
	}
	for _, target := range excluded {
		cfg.Exclude(target)
	}

	cfg.MinRequestInterval = time.Duration(intervalMs) * time.Millisecond
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond
	cfg.MaxRetries = maxRetries
	cfg.RetryBackoff = time.Duration(retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(retryBackoffMaxMs) * time.Millisecond
	cfg.OutputFile = outputFile
	cfg.OutputFormat = strings.ToLower(outputFormat)
	cfg.Verbose = verbose
	cfg.BaseURL = baseURL
	cfg.MetricsAddr = metricsAddr
	return cfg, nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func parseIntList(raw string) ([]int, error) {
	var values []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return values, nil
}

// parseExclusions reads slug:year:stage entries; stage 0 means the race's
// one-day result page.
func parseExclusions(raw string) ([]models.StageTarget, error) {
	var targets []models.StageTarget
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid exclusion %q, want slug:year:stage", entry)
		}
		year, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid year in exclusion %q", entry)
		}
		stage, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid stage in exclusion %q", entry)
		}
		targets = append(targets, models.StageTarget{Slug: parts[0], Year: year, Stage: stage})
	}
	return targets, nil
}

func intsToCSV(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func circuitsToCSV(circuits []models.Circuit) string {
	parts := make([]string, len(circuits))
	for i, c := range circuits {
		parts[i] = strconv.Itoa(int(c))
	}
	return strings.Join(parts, ",")
}

func printSummary(summary *models.RunSummary, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Harvest complete")

	fmt.Printf("  Races:         %d\n", summary.RaceCount)
	fmt.Printf("  Result pages:  %d\n", summary.TargetCount)
	fmt.Printf("  Rows:          %d\n", summary.RowCount)
	fmt.Printf("  Errors:        %d\n", summary.ErrorCount)
	if len(summary.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", summary.ErrorsByType)
	}
	if summary.CoercionIssues > 0 {
		fmt.Printf("  Coercions:     %d cells kept raw\n", summary.CoercionIssues)
	}
	for _, skip := range summary.Skipped {
		if skip.Stage > 0 {
			fmt.Printf("  Skipped:       %s/%d stage %d (%s)\n", skip.Slug, skip.Year, skip.Stage, skip.Reason)
		} else {
			fmt.Printf("  Skipped:       %s/%d (%s)\n", skip.Slug, skip.Year, skip.Reason)
		}
	}
	if summary.Cancelled {
		fmt.Println("  Run cancelled; partial output written")
	}
	fmt.Printf("  Duration:      %v\n", summary.EndTime.Sub(summary.StartTime))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
