package feedsim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/linewatch/internal/domain/rate"
	"github.com/okian/linewatch/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// defaultBase is the first counter value on an empty log.
const defaultBase = 1000

// Run submits a synthetic feed and verifies every derived rate.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	applyDefaults(cfg)
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("feedsim")

	log.Info(ctx, "starting linewatch feed simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("readings", cfg.Readings),
		logger.Duration("interval", cfg.Interval),
		logger.Int64("meanRate", cfg.MeanRate),
		logger.Int("workers", cfg.Workers),
		logger.Bool("verbose", cfg.Verbose))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Learn the schema and where the log currently stands
	var schema Schema
	if err := client.Get(ctx, "/api/schema", &schema); err != nil {
		return stats, fmt.Errorf("schema lookup failed: %w", err)
	}
	start, err := latestAnchor(ctx, client, schema)
	if err != nil {
		return stats, fmt.Errorf("log lookup failed: %w", err)
	}
	base := int64(defaultBase)
	if start.ok {
		base = start.sample.Value
	}

	// Step 3: Plan the feed
	feed := Generate(ctx, cfg, schema, base)
	stats.ReadingsPlanned = len(feed)

	// Step 4: Submit in order
	subs, err := submitFeed(ctx, cfg, client, schema, feed, stats)
	if err != nil {
		return stats, fmt.Errorf("feed submission failed: %w", err)
	}

	// Step 5: Verify derived rates
	calc := rate.NewCalculator(rate.WithThreshold(schema.NormalThreshold), rate.WithWindow(cfg.Window))
	exps := expectations(calc, start, subs)
	if err := verifyFeed(ctx, cfg, client, exps, stats); err != nil {
		return stats, err
	}

	// Step 6: Verify a single-entry correction
	if err := verifyCorrection(ctx, client, schema, exps, stats); err != nil {
		return stats, err
	}

	// Step 7: Save the feed
	if cfg.OutputFile != "" {
		if err := saveFeed(ctx, cfg.OutputFile, feed); err != nil {
			log.Warn(ctx, "failed to save feed to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Readings <= 0 {
		cfg.Readings = DefaultReadings
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MeanRate <= 0 {
		cfg.MeanRate = DefaultMeanRate
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")
	var stats map[string]any
	if err := client.Get(ctx, "/stats", &stats); err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	logger.Get().Info(ctx, "service is healthy", logger.Any("entries", stats["entries"]))
	return nil
}

// saveFeed writes the planned feed as indented JSON.
func saveFeed(ctx context.Context, filename string, feed []Planned) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal feed: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}
	logger.Get().Info(ctx, "feed saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate float64
	if stats.ReadingsSubmitted > 0 {
		successRate = float64(stats.ReadingsSubmitted-stats.ReadingsFailed) / float64(stats.ReadingsSubmitted) * PercentageMultiplier
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("planned", stats.ReadingsPlanned),
		logger.Int("submitted", stats.ReadingsSubmitted),
		logger.Int("failed", stats.ReadingsFailed),
		logger.Int("verified", stats.ReadingsVerified),
		logger.Int("mismatches", stats.Mismatches),
		logger.Int("normal", stats.Normal),
		logger.Int("slow", stats.Slow),
		logger.Int("unknown", stats.Unknown),
		logger.Bool("correctionChecked", stats.CorrectionChecked),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate))
}
