package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/pixelrelay/internal/domain/storefront"
	"github.com/okian/pixelrelay/pkg/logger"
)

const directoryPermission = 0750

// Run executes a complete event run against a relay.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting pixelrelay event run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("events", config.NumEvents),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Float64("duplicateRatio", config.DuplicateRatio),
		logger.Bool("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	events := GenerateEvents(config.NumEvents, config.DuplicateRatio)
	stats.EventsGenerated = len(events)
	log.Info(ctx, "events generated", logger.Int("count", len(events)))

	if err := submitEvents(ctx, config, events, stats); err != nil {
		return stats, fmt.Errorf("event submission failed: %w", err)
	}

	if remote, err := fetchStats(ctx, config); err != nil {
		log.Warn(ctx, "failed to fetch relay stats", logger.Error(err))
	} else {
		log.Info(ctx, "relay stats", logger.Any("stats", remote))
	}

	if config.OutputFile != "" {
		if err := saveEventsToFile(ctx, config.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the relay is serving.
func checkServiceHealth(ctx context.Context, config *Config) error {
	resp, err := newHTTPClient(config.Timeout).Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// fetchStats reads the relay's runtime statistics.
func fetchStats(ctx context.Context, config *Config) (map[string]any, error) {
	resp, err := newHTTPClient(config.Timeout).Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}
	return out, nil
}

// saveEventsToFile writes the generated events as an indented JSON array.
func saveEventsToFile(ctx context.Context, filename string, events []storefront.Event) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptedRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		accepted := stats.Emitted + stats.Suppressed + stats.Unregistered
		acceptedRate = float64(accepted) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.EventsGenerated),
		logger.Int("submitted", stats.EventsSubmitted),
		logger.Int("emitted", stats.Emitted),
		logger.Int("suppressed", stats.Suppressed),
		logger.Int("unregistered", stats.Unregistered),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Float64("acceptedRate", acceptedRate),
		logger.Float64("eventsPerSecond", eventsPerSecond),
		logger.Duration("duration", stats.Duration))
}
