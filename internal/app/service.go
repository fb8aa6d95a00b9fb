// Package service wires the relay: dedupe, dispatch, sinks, queue and the
// delivery workers. It implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/pixelrelay/internal/adapters/collector"
	eventqueue "github.com/okian/pixelrelay/internal/adapters/mq/queue"
	workerpool "github.com/okian/pixelrelay/internal/adapters/mq/worker"
	"github.com/okian/pixelrelay/internal/dispatch"
	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/consent"
	"github.com/okian/pixelrelay/internal/domain/dedupe"
	"github.com/okian/pixelrelay/internal/domain/normalize"
	"github.com/okian/pixelrelay/internal/domain/storefront"
	"github.com/okian/pixelrelay/internal/sink"
	"github.com/okian/pixelrelay/pkg/logger"
	"github.com/okian/pixelrelay/pkg/metrics"
)

// ErrNotStarted is returned by operations that need a running service.
var ErrNotStarted = errors.New("service not started")

const (
	defaultQueueSize        = 10_000
	defaultDedupeSize       = 100_000
	defaultCollectorURL     = "http://localhost:8088"
	defaultCollectorTimeout = 5 * time.Second
)

// Service relays storefront events to the collector.
type Service struct {
	mu sync.RWMutex

	deduper    dedupe.Deduper
	queue      *eventqueue.InMemoryQueue
	pool       *workerpool.Pool
	dispatcher *dispatch.Dispatcher
	tracker    *consent.Tracker
	mirror     *sink.Mirror
	client     *collector.Client

	workerCount      int
	queueSize        int
	dedupeSize       int
	toggles          dispatch.Toggles
	affiliation      string
	shopCurrency     string
	pageLocation     string
	collectorURL     string
	measurementID    string
	collectorTimeout time.Duration
	deliverer        workerpool.Deliverer
	debug            bool
	initialConsent   analytics.ConsentState

	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        defaultQueueSize,
		dedupeSize:       defaultDedupeSize,
		toggles:          dispatch.AllEnabled(),
		collectorURL:     defaultCollectorURL,
		collectorTimeout: defaultCollectorTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts every component. Starting twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)

	s.client = collector.New(s.collectorURL,
		collector.WithMeasurementID(s.measurementID),
		collector.WithTimeout(s.collectorTimeout),
	)
	deliverer := s.deliverer
	if deliverer == nil {
		deliverer = s.client
	}

	s.mirror = sink.NewMirror(s.debug, s.logger)
	out := sink.NewMulti(sink.NewQueued(s.queue, s.client), s.mirror)

	s.tracker = consent.NewTracker(s.initialConsent, out)
	out.Consent(ctx, s.tracker.Signals())

	n := normalize.New(s.affiliation, s.shopCurrency, s.pageLocation)
	s.dispatcher = dispatch.NewDispatcher(dispatch.NewRegistry(n, s.toggles), out)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, deliverer)
	// Workers outlive the start context; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "relay service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("mappings", s.dispatcher.Registry().Len()),
		logger.String("collector", s.client.URL()),
	)
	return nil
}

// Stop closes the queue, drains the workers and marks the service stopped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping relay service")

	var err error
	if s.pool != nil {
		if perr := s.pool.Shutdown(ctx); perr != nil {
			err = fmt.Errorf("stop workers: %w", perr)
		}
	}
	s.started = false
	s.logger.Info(ctx, "relay service stopped")
	return err
}

// SeenAndRecord reports whether the event id was already seen and records
// it otherwise.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord forgets an event id so a retry is accepted.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		d.Unrecord(ctx, id)
	}
}

// Dispatch maps one storefront event and hands it to the sinks.
func (s *Service) Dispatch(ctx context.Context, e *storefront.Event) (dispatch.Outcome, error) {
	s.mu.RLock()
	started, d := s.started, s.dispatcher
	s.mu.RUnlock()
	if !started {
		return "", ErrNotStarted
	}
	return d.Dispatch(ctx, e), nil
}

// UpdateConsent replaces the consent state and returns the emitted signals.
func (s *Service) UpdateConsent(ctx context.Context, state analytics.ConsentState) (analytics.ConsentSignals, error) {
	s.mu.RLock()
	started, t := s.started, s.tracker
	s.mu.RUnlock()
	if !started {
		return analytics.ConsentSignals{}, ErrNotStarted
	}
	return t.Update(ctx, state), nil
}

// SetDebug toggles mirroring of canonical events at runtime.
func (s *Service) SetDebug(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = on
	if s.mirror != nil {
		s.mirror.SetEnabled(on)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"debug":       s.debug,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	pool := s.pool.Stats()
	mappings := make([]string, 0, s.dispatcher.Registry().Len())
	for _, e := range s.dispatcher.Registry().Entries() {
		mappings = append(mappings, e.Source)
	}

	stats["queueLength"] = s.queue.Len(ctx)
	stats["dedupeEntries"] = s.deduper.Size()
	stats["delivered"] = pool.Delivered
	stats["deliveryFailed"] = pool.Failed
	stats["mappings"] = mappings
	stats["consent"] = s.tracker.Signals()
	return stats
}
