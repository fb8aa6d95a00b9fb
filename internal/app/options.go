package service

import (
	"time"

	"github.com/okian/pixelrelay/internal/adapters/mq/worker"
	"github.com/okian/pixelrelay/internal/dispatch"
	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued envelopes.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithToggles selects the enabled event categories.
func WithToggles(t dispatch.Toggles) Option {
	return func(s *Service) { s.toggles = t }
}

// WithStore sets the store-level labels used by the mappers.
func WithStore(affiliation, currency, pageLocation string) Option {
	return func(s *Service) {
		s.affiliation = affiliation
		s.shopCurrency = currency
		s.pageLocation = pageLocation
	}
}

// WithCollector sets the collection endpoint.
func WithCollector(url, measurementID string, timeout time.Duration) Option {
	return func(s *Service) {
		s.collectorURL = url
		s.measurementID = measurementID
		if timeout > 0 {
			s.collectorTimeout = timeout
		}
	}
}

// WithDeliverer replaces the collector client used by the workers.
func WithDeliverer(d worker.Deliverer) Option {
	return func(s *Service) { s.deliverer = d }
}

// WithDebug mirrors every canonical event to the log.
func WithDebug(on bool) Option {
	return func(s *Service) { s.debug = on }
}

// WithInitialConsent seeds the consent state.
func WithInitialConsent(state analytics.ConsentState) Option {
	return func(s *Service) { s.initialConsent = state }
}
