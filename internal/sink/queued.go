package sink

import (
	"context"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/pkg/logger"
	"github.com/okian/pixelrelay/pkg/metrics"
)

// Enqueuer accepts envelopes for asynchronous delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, env Envelope) error
}

// ConsentSetter keeps the consent signals attached to deliveries.
type ConsentSetter interface {
	SetConsent(signals analytics.ConsentSignals)
}

// Queued hands events to a queue and consent to the delivery side. Events
// the queue refuses are dropped and counted.
type Queued struct {
	queue   Enqueuer
	consent ConsentSetter
	logger  logger.Logger
}

// NewQueued returns a Queued sink. consent may be nil.
func NewQueued(q Enqueuer, consent ConsentSetter) *Queued {
	return &Queued{
		queue:   q,
		consent: consent,
		logger:  logger.Get().Named("sink"),
	}
}

// Event implements Sink.
func (s *Queued) Event(ctx context.Context, env Envelope) { //nolint:gocritic // hugeParam: envelopes travel by value
	if err := s.queue.Enqueue(ctx, env); err != nil {
		metrics.RecordSinkDropped()
		s.logger.Warn(ctx, "event dropped",
			logger.String("event", env.Event.Name),
			logger.String("envelope_id", env.ID.String()),
			logger.Error(err),
		)
	}
}

// Consent implements Sink.
func (s *Queued) Consent(_ context.Context, signals analytics.ConsentSignals) {
	if s.consent != nil {
		s.consent.SetConsent(signals)
	}
}
