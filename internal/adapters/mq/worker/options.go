// Package worker drains the envelope queue and hands envelopes to a deliverer.
package worker

import (
	"github.com/okian/pixelrelay/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithObserver registers a callback run after every delivery attempt.
func WithObserver(fn func(err error)) Option {
	return func(w *InMemoryWorker) {
		w.observe = fn
	}
}
