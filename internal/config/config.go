// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and PIXELRELAY_* env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MeasurementID identifies the analytics property events are sent to.
	MeasurementID string `koanf:"measurement_id"`

	// CollectorURL is the base URL of the collection endpoint.
	CollectorURL string `koanf:"collector_url"`

	// CollectorTimeoutMS bounds a single collector request.
	CollectorTimeoutMS int `koanf:"collector_timeout_ms"`

	// Debug mirrors every canonical event to the log.
	Debug bool `koanf:"debug"`

	// Per-category toggles gating which mappings are registered.
	TrackPageViews  bool `koanf:"track_page_views"`
	TrackEcommerce  bool `koanf:"track_ecommerce"`
	TrackSearch     bool `koanf:"track_search"`
	TrackFormSubmit bool `koanf:"track_form_submit"`

	// Affiliation is copied verbatim into purchase events.
	Affiliation string `koanf:"affiliation"`

	// ShopCurrency is the store default currency used when an event carries none.
	ShopCurrency string `koanf:"shop_currency"`

	// DefaultPageLocation is the last-resort page_location.
	DefaultPageLocation string `koanf:"default_page_location"`

	// QueueSize bounds the in-memory delivery queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of delivery workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the event-id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Initial consent snapshot, replaced by the first consent notification.
	ConsentAnalytics   bool `koanf:"consent_analytics"`
	ConsentMarketing   bool `koanf:"consent_marketing"`
	ConsentPreferences bool `koanf:"consent_preferences"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshMS is the period of the system and worker gauge updaters.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`

	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string `koanf:"otel_endpoint"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		CollectorURL:       "http://localhost:8088",
		CollectorTimeoutMS: 5000,
		TrackPageViews:     true,
		TrackEcommerce:     true,
		TrackSearch:        true,
		TrackFormSubmit:    true,
		Affiliation:        "Shopify Store",
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU() * 2,
		DedupeSize:         100_000,
		MetricsEnabled:     true,
		MetricsRefreshMS:   10_000,
	}
}
