// Package consent translates storefront privacy state into canonical consent
// signals and keeps the current value for the process.
package consent

import (
	"context"
	"sync/atomic"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/storefront"
	"github.com/okian/pixelrelay/pkg/logger"
	"github.com/okian/pixelrelay/pkg/metrics"
)

// Emitter receives every translated consent update.
type Emitter interface {
	Consent(ctx context.Context, signals analytics.ConsentSignals)
}

// Translate maps consent state onto the four signals. Marketing drives both
// ad_storage and ad_user_data.
func Translate(s analytics.ConsentState) analytics.ConsentSignals {
	return analytics.ConsentSignals{
		AnalyticsStorage:  analytics.ValueOf(s.AnalyticsAllowed),
		AdStorage:         analytics.ValueOf(s.MarketingAllowed),
		AdPersonalization: analytics.ValueOf(s.PersonalizationAllowed),
		AdUserData:        analytics.ValueOf(s.MarketingAllowed),
	}
}

// FromPrivacy reads consent state from a storefront privacy snapshot.
func FromPrivacy(p storefront.CustomerPrivacy) analytics.ConsentState {
	return analytics.ConsentState{
		AnalyticsAllowed:       p.AnalyticsProcessingAllowed,
		MarketingAllowed:       p.MarketingAllowed,
		PersonalizationAllowed: p.PreferencesProcessingAllowed,
	}
}

// Tracker holds the current consent state. Update overwrites it; there is no
// history and no merging. Reads are lock-free snapshots.
type Tracker struct {
	current atomic.Pointer[analytics.ConsentState]
	emitter Emitter
	logger  logger.Logger
}

// NewTracker seeds a tracker with initial. emitter may be nil.
func NewTracker(initial analytics.ConsentState, emitter Emitter) *Tracker {
	t := &Tracker{
		emitter: emitter,
		logger:  logger.Get().Named("consent"),
	}
	t.current.Store(&initial)
	return t
}

// State returns the current consent state.
func (t *Tracker) State() analytics.ConsentState {
	return *t.current.Load()
}

// Signals returns the current state translated to signals.
func (t *Tracker) Signals() analytics.ConsentSignals {
	return Translate(t.State())
}

// Update replaces the current state and emits the translated signals.
func (t *Tracker) Update(ctx context.Context, s analytics.ConsentState) analytics.ConsentSignals {
	t.current.Store(&s)
	signals := Translate(s)
	metrics.RecordConsentUpdate(signals.Flags())
	t.logger.Debug(ctx, "consent updated",
		logger.String("analytics_storage", string(signals.AnalyticsStorage)),
		logger.String("ad_storage", string(signals.AdStorage)),
		logger.String("ad_personalization", string(signals.AdPersonalization)),
	)
	if t.emitter != nil {
		t.emitter.Consent(ctx, signals)
	}
	return signals
}
