package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pixelrelay/internal/adapters/mq/queue"
	"github.com/okian/pixelrelay/pkg/logger"
	"github.com/okian/pixelrelay/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	poolShutdownTimeout     = 30 * time.Second
)

// Envelope is what workers read off the queue.
type Envelope = queue.Envelope

// Deliverer sends one envelope downstream.
type Deliverer interface {
	Deliver(ctx context.Context, env Envelope) error
}

// Queue defines how workers receive envelopes.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Envelope
}

// Worker delivers envelopes until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	deliverer Deliverer
	name      string
	observe   func(err error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading q and delivering through d.
func NewInMemoryWorker(q Queue, d Deliverer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		deliverer: d,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}
	return w
}

// Run drains the queue. It returns when ctx is done, Shutdown is called or
// the queue is closed and empty.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	envelopes := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case env, ok := <-envelopes:
			if !ok {
				return
			}
			err := w.deliver(ctx, env)
			if w.observe != nil {
				w.observe(err)
			}
		}
	}
}

// Shutdown stops the worker and waits for the in-flight delivery.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) deliver(ctx context.Context, env Envelope) error { //nolint:gocritic // hugeParam: envelopes travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.deliverer.Deliver(ctx, env); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "delivery_error")
		metrics.RecordErrorByType("delivery_error", "medium")
		w.logger.Error(ctx, "delivery failed",
			logger.String("envelope_id", env.ID.String()),
			logger.String("event", env.Event.Name),
			logger.Error(err),
		)
		return fmt.Errorf("deliver %s: %w", env.ID, err)
	}
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown     chan struct{}
	shutdownOnce sync.Once

	delivered atomic.Int64
	failed    atomic.Int64
	window    atomic.Int64
	lastTick  time.Time

	logger logger.Logger
}

// PoolStats reports cumulative delivery counts.
type PoolStats struct {
	Workers   int   `json:"workers"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// NewPool creates a pool of workerCount workers. A non-positive count
// defaults to twice the CPU count.
func NewPool(workerCount int, q Queue, d Deliverer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		lastTick: time.Now(),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(q, d,
			WithName("worker-"+strconv.Itoa(i)),
			WithObserver(p.record),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerMessagesPerSecond(0.0)
	return p
}

func (p *Pool) record(err error) {
	p.window.Add(1)
	if err != nil {
		p.failed.Add(1)
		return
	}
	p.delivered.Add(1)
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			if elapsed := now.Sub(p.lastTick).Seconds(); elapsed > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(p.window.Swap(0)) / elapsed)
			}
			p.lastTick = now
		}
	}
}

// Stats returns cumulative delivery counts.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:   len(p.workers),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
	}
}

// Shutdown closes the queue, lets workers drain what is left and waits for
// them up to ctx or an internal ceiling.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	p.shutdownOnce.Do(func() { close(p.shutdown) })

	waitCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-waitCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", waitCtx.Err())
	}
	return nil
}
