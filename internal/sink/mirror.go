package sink

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/pkg/logger"
)

// Mirror writes every canonical event to the log while enabled. It has no
// other effect.
type Mirror struct {
	enabled atomic.Bool
	logger  logger.Logger
}

// NewMirror returns a Mirror; l defaults to the global logger.
func NewMirror(enabled bool, l logger.Logger) *Mirror {
	if l == nil {
		l = logger.Get()
	}
	m := &Mirror{logger: l.Named("mirror")}
	m.enabled.Store(enabled)
	return m
}

// SetEnabled toggles mirroring at runtime.
func (m *Mirror) SetEnabled(on bool) { m.enabled.Store(on) }

// Enabled reports whether mirroring is on.
func (m *Mirror) Enabled() bool { return m.enabled.Load() }

// Event implements Sink.
func (m *Mirror) Event(ctx context.Context, env Envelope) { //nolint:gocritic // hugeParam: envelopes travel by value
	if !m.enabled.Load() {
		return
	}
	params, err := json.Marshal(env.Event)
	if err != nil {
		m.logger.Warn(ctx, "mirror encode failed", logger.Error(err))
		return
	}
	m.logger.Info(ctx, "event",
		logger.String("event", env.Event.Name),
		logger.String("client_id", env.ClientID),
		logger.String("params", string(params)),
	)
}

// Consent implements Sink.
func (m *Mirror) Consent(ctx context.Context, s analytics.ConsentSignals) {
	if !m.enabled.Load() {
		return
	}
	m.logger.Info(ctx, "consent",
		logger.String("analytics_storage", string(s.AnalyticsStorage)),
		logger.String("ad_storage", string(s.AdStorage)),
		logger.String("ad_personalization", string(s.AdPersonalization)),
		logger.String("ad_user_data", string(s.AdUserData)),
	)
}
