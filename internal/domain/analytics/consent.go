package analytics

// ConsentValue is one consent signal value.
type ConsentValue string

// Consent signal values.
const (
	Granted ConsentValue = "granted"
	Denied  ConsentValue = "denied"
)

// ConsentState is the visitor's current consent.
type ConsentState struct {
	AnalyticsAllowed       bool
	MarketingAllowed       bool
	PersonalizationAllowed bool
}

// ConsentSignals are the four canonical consent signals.
type ConsentSignals struct {
	AnalyticsStorage  ConsentValue `json:"analytics_storage"`
	AdStorage         ConsentValue `json:"ad_storage"`
	AdPersonalization ConsentValue `json:"ad_personalization"`
	AdUserData        ConsentValue `json:"ad_user_data"`
}

// Flags reports the signals as booleans keyed by signal name.
func (s ConsentSignals) Flags() map[string]bool {
	return map[string]bool{
		"analytics_storage":  s.AnalyticsStorage == Granted,
		"ad_storage":         s.AdStorage == Granted,
		"ad_personalization": s.AdPersonalization == Granted,
		"ad_user_data":       s.AdUserData == Granted,
	}
}

// ValueOf maps a flag to granted/denied.
func ValueOf(allowed bool) ConsentValue {
	if allowed {
		return Granted
	}
	return Denied
}
