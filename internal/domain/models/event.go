package models

import "time"

// Event is an externally supplied market event record. Enrichment fields are
// optional and pass through the correlator unmodified.
type Event struct {
	Date          time.Time `json:"date"`
	Title         string    `json:"title"`
	Type          string    `json:"type"`
	Description   string    `json:"description,omitempty"`
	RegionCountry string    `json:"region_country,omitempty"`

	ExpectedDirection    string `json:"expected_price_direction,omitempty"`
	ExpectedDurationDays int    `json:"expected_impact_duration_days,omitempty"`
	ExpectedMagnitude    string `json:"expected_impact_magnitude,omitempty"`
	RegionCode           string `json:"region_code,omitempty"`
	OPECRelated          bool   `json:"is_opec_related,omitempty"`
	USRelated            bool   `json:"is_us_related,omitempty"`
	MiddleEast           bool   `json:"is_middle_east,omitempty"`
}

// CorrelatedEvent is an event annotated with its signed day distance from a
// detected change date.
type CorrelatedEvent struct {
	Event
	DaysFromChange int `json:"days_from_change"`
}

// Causation likelihood labels. The thresholds behind them (7 and 30 days)
// are a fixed heuristic ladder kept compatible with historical reports.
const (
	CausationHigh     = "high"
	CausationModerate = "moderate"
	CausationLow      = "low"
)

// EventCorrelation joins one change-point posterior against an event list.
type EventCorrelation struct {
	ChangeDate             time.Time         `json:"change_date"`
	HDIInterval            [2]time.Time      `json:"hdi_interval"`
	NearbyEvents           []CorrelatedEvent `json:"nearby_events"`
	EventsInHDI            []Event           `json:"events_in_hdi"`
	ClosestEvent           *CorrelatedEvent  `json:"closest_event"`
	EventCountWithinWindow int               `json:"event_count_within_window"`
	// ProbabilityEventCausedChange is a coarse heuristic score, not a
	// statistical estimate.
	ProbabilityEventCausedChange float64 `json:"probability_event_caused_change"`
	CausationLikelihood          string  `json:"causation_likelihood,omitempty"`
}

// ChangePointCorrelation is the per-breakpoint correlation entry of a
// two-changepoint analysis.
type ChangePointCorrelation struct {
	ChangePoint  int               `json:"change_point"`
	Date         time.Time         `json:"date"`
	NearbyEvents []CorrelatedEvent `json:"nearby_events"`
	ClosestEvent *CorrelatedEvent  `json:"closest_event"`
}

// MultiEventCorrelation holds one correlation per detected change point.
type MultiEventCorrelation struct {
	ChangePoints []ChangePointCorrelation `json:"change_points"`
}
