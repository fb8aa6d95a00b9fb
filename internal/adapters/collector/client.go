// Package collector delivers canonical events to a measurement collection
// endpoint. Each envelope gets exactly one attempt.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/model"
	"github.com/okian/pixelrelay/pkg/logger"
	"github.com/okian/pixelrelay/pkg/metrics"
)

const (
	collectPath      = "/mp/collect"
	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 512
	tracerName       = "github.com/okian/pixelrelay/internal/adapters/collector"
)

// Request is the body posted to the collector.
type Request struct {
	ClientID        string                    `json:"client_id"`
	TimestampMicros int64                     `json:"timestamp_micros,omitempty"`
	Consent         *analytics.ConsentSignals `json:"consent,omitempty"`
	Events          []RequestEvent            `json:"events"`
}

// RequestEvent is one named event with its parameters.
type RequestEvent struct {
	Name   string          `json:"name"`
	Params analytics.Event `json:"params"`
}

// Client posts envelopes to the collector.
type Client struct {
	endpoint      string
	measurementID string
	httpClient    *http.Client
	consent       atomic.Pointer[analytics.ConsentSignals]
	tracer        trace.Tracer
	logger        logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMeasurementID sets the measurement_id query parameter.
func WithMeasurementID(id string) Option {
	return func(c *Client) { c.measurementID = id }
}

// New returns a client posting to baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + collectPath,
		httpClient: &http.Client{Timeout: defaultTimeout},
		tracer:     otel.Tracer(tracerName),
		logger:     logger.Get().Named("collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetConsent records the latest consent signals; they are attached to every
// later request.
func (c *Client) SetConsent(signals analytics.ConsentSignals) {
	c.consent.Store(&signals)
}

// Consent returns the signals attached to requests, or nil before the first
// update.
func (c *Client) Consent() *analytics.ConsentSignals {
	return c.consent.Load()
}

// URL returns the full collect URL.
func (c *Client) URL() string {
	if c.measurementID == "" {
		return c.endpoint
	}
	return c.endpoint + "?measurement_id=" + url.QueryEscape(c.measurementID)
}

// Deliver posts env once. Non-2xx responses are reported as ErrStatus.
func (c *Client) Deliver(ctx context.Context, env model.Envelope) error { //nolint:gocritic // hugeParam: envelopes travel by value
	ctx, span := c.tracer.Start(ctx, "collector.deliver",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("event.name", env.Event.Name),
			attribute.String("envelope.id", env.ID.String()),
		),
	)
	defer span.End()

	start := time.Now()
	status, err := c.post(ctx, env)
	latency := float64(time.Since(start).Milliseconds())
	metrics.RecordDelivery(status, latency)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordErrorByComponent("collector", status)
		metrics.RecordErrorLatency("collector", status, latency)
		return err
	}
	c.logger.Debug(ctx, "event delivered",
		logger.String("event", env.Event.Name),
		logger.String("envelope_id", env.ID.String()),
		logger.Float64("latency_ms", latency),
	)
	return nil
}

func (c *Client) post(ctx context.Context, env model.Envelope) (string, error) { //nolint:gocritic // hugeParam: envelopes travel by value
	body, err := json.Marshal(Request{
		ClientID:        env.ClientID,
		TimestampMicros: env.ReceivedAt.UnixMicro(),
		Consent:         c.Consent(),
		Events:          []RequestEvent{{Name: env.Event.Name, Params: env.Event}},
	})
	if err != nil {
		return "encode_error", fmt.Errorf("%w: encode: %w", ErrRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return "request_error", fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "transport_error", fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return strconv.Itoa(resp.StatusCode), fmt.Errorf("%w: status %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return "ok", nil
}
