// Package sink defines where canonical events go once they are mapped.
// Calls are fire-and-forget: a sink never reports failure to the caller.
package sink

import (
	"context"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/model"
)

// Envelope is a canonical event with its delivery metadata.
type Envelope = model.Envelope

// Sink accepts canonical events and consent signals.
type Sink interface {
	Event(ctx context.Context, env Envelope)
	Consent(ctx context.Context, signals analytics.ConsentSignals)
}

// Multi fans every call out to each sink in order.
type Multi []Sink

// NewMulti returns a Multi over the non-nil sinks.
func NewMulti(sinks ...Sink) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

// Event implements Sink.
func (m Multi) Event(ctx context.Context, env Envelope) { //nolint:gocritic // hugeParam: envelopes travel by value
	for _, s := range m {
		s.Event(ctx, env)
	}
}

// Consent implements Sink.
func (m Multi) Consent(ctx context.Context, signals analytics.ConsentSignals) {
	for _, s := range m {
		s.Consent(ctx, signals)
	}
}
