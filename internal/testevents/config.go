package testevents

import "time"

// Runner defaults.
const (
	StatusOK             = 200
	StatusAccepted       = 202
	PercentageMultiplier = 100
)

// Config holds configuration for an event run.
type Config struct {
	BaseURL        string        // base URL of the relay
	NumEvents      int           // number of events to generate
	Workers        int           // concurrent submitters
	Timeout        time.Duration // per-request timeout
	DuplicateRatio float64       // share of events resent with a repeated id
	OutputFile     string        // where generated events are saved
	LogFile        string        // log file for run output
	Verbose        bool
}

// AckResponse is the relay's answer to one submitted event.
type AckResponse struct {
	Status    string `json:"status"`
	Outcome   string `json:"outcome"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated int
	EventsSubmitted int
	Emitted         int
	Suppressed      int
	Unregistered    int
	Duplicate       int
	Failed          int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
