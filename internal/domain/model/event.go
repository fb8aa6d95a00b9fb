// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/pixelrelay/internal/domain/analytics"
)

// Envelope is one canonical event on its way to the collector.
type Envelope struct {
	ID         uuid.UUID       // delivery id, unique per envelope
	SourceID   string          // storefront event id, may be empty
	ClientID   string          // storefront client id
	Event      analytics.Event // canonical payload
	ReceivedAt time.Time
}

// NewEnvelope wraps ev with a fresh delivery id.
func NewEnvelope(sourceID, clientID string, ev analytics.Event) Envelope { //nolint:gocritic // hugeParam: envelopes travel by value
	return Envelope{
		ID:         uuid.New(),
		SourceID:   sourceID,
		ClientID:   clientID,
		Event:      ev,
		ReceivedAt: time.Now(),
	}
}

// Age reports how long ago the envelope was created.
func (e *Envelope) Age() time.Duration {
	return time.Since(e.ReceivedAt)
}
