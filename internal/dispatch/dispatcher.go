package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/pixelrelay/internal/domain/model"
	"github.com/okian/pixelrelay/internal/domain/storefront"
	"github.com/okian/pixelrelay/internal/sink"
	"github.com/okian/pixelrelay/pkg/logger"
	"github.com/okian/pixelrelay/pkg/metrics"
)

const tracerName = "github.com/okian/pixelrelay/internal/dispatch"

// Outcome reports what happened to one storefront event.
type Outcome string

// Outcomes.
const (
	Emitted      Outcome = "emitted"
	Suppressed   Outcome = "suppressed"
	Unregistered Outcome = "unregistered"
)

// Dispatcher maps storefront events and hands them to a sink.
type Dispatcher struct {
	registry *Registry
	sink     sink.Sink
	tracer   trace.Tracer
	logger   logger.Logger
}

// NewDispatcher returns a dispatcher over r writing to s.
func NewDispatcher(r *Registry, s sink.Sink) *Dispatcher {
	return &Dispatcher{
		registry: r,
		sink:     s,
		tracer:   otel.Tracer(tracerName),
		logger:   logger.Get().Named("dispatch"),
	}
}

// Registry returns the registry in use.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch routes e. It never fails on payload shape: unknown or disabled
// events are Unregistered and business-rule drops are Suppressed.
func (d *Dispatcher) Dispatch(ctx context.Context, e *storefront.Event) Outcome {
	ctx, span := d.tracer.Start(ctx, "dispatch",
		trace.WithAttributes(attribute.String("storefront.event", e.Name)))
	defer span.End()

	metrics.RecordEventReceived(e.Name)

	entry, ok := d.registry.Lookup(e.Name)
	if !ok {
		metrics.RecordEventUnregistered(e.Name)
		span.SetAttributes(attribute.String("dispatch.outcome", string(Unregistered)))
		d.logger.Debug(ctx, "no mapping registered", logger.String("event", e.Name))
		return Unregistered
	}

	start := time.Now()
	ev, emit := entry.Mapper(e)
	metrics.RecordMappingLatency(float64(time.Since(start).Microseconds()) / 1000)

	if !emit {
		metrics.RecordEventSuppressed(e.Name)
		span.SetAttributes(attribute.String("dispatch.outcome", string(Suppressed)))
		d.logger.Debug(ctx, "event suppressed", logger.String("event", e.Name))
		return Suppressed
	}

	d.sink.Event(ctx, model.NewEnvelope(e.ID, e.ClientID, ev))
	metrics.RecordEventEmitted(ev.Name)
	span.SetAttributes(
		attribute.String("dispatch.outcome", string(Emitted)),
		attribute.String("analytics.event", ev.Name),
	)
	return Emitted
}
