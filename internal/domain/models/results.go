package models

import "time"

// DocumentDateLayout is the calendar-date format used in persisted result
// documents.
const DocumentDateLayout = "2006-01-02"

// ChangePointResult is the persisted change-point block. Downstream
// dashboards key off these exact field names.
type ChangePointResult struct {
	MeanDate    string    `json:"mean_date"`
	HDI95Dates  [2]string `json:"hdi_95_dates"`
	Probability float64   `json:"probability"`
}

// MeanChangeResult is the persisted mean-return shift block.
type MeanChangeResult struct {
	Mean                float64    `json:"mean"`
	Std                 float64    `json:"std"`
	HDI95               [2]float64 `json:"hdi_95"`
	ProbabilityPositive float64    `json:"probability_positive"`
	ProbabilityNegative float64    `json:"probability_negative"`
}

// VolatilityChangeResult is the persisted volatility shift block.
type VolatilityChangeResult struct {
	Mean                float64    `json:"mean"`
	Std                 float64    `json:"std"`
	HDI95               [2]float64 `json:"hdi_95"`
	ProbabilityIncrease float64    `json:"probability_increase"`
	ProbabilityDecrease float64    `json:"probability_decrease"`
}

// ParameterChangesResult groups the persisted parameter-shift blocks.
type ParameterChangesResult struct {
	MeanChange       MeanChangeResult       `json:"mean_change"`
	VolatilityChange VolatilityChangeResult `json:"volatility_change"`
}

// ResultsDocument is the analysis artifact consumed by external reporting.
type ResultsDocument struct {
	Model            string                 `json:"model"`
	ChangePoint      ChangePointResult      `json:"change_point"`
	ParameterChanges ParameterChangesResult `json:"parameter_changes"`
	Converged        bool                   `json:"converged"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// EventImpact summarises pre/post average prices around a single event.
type EventImpact struct {
	EventTitle    string    `json:"event_title"`
	EventDate     time.Time `json:"event_date"`
	PreAvg        float64   `json:"pre_avg"`
	PostAvg       float64   `json:"post_avg"`
	PriceChange   float64   `json:"price_change"`
	PercentChange float64   `json:"percent_change"`
	WindowDays    int       `json:"window_days"`
}

// VolatilityPoint is one rolling-volatility observation.
type VolatilityPoint struct {
	Date       time.Time `json:"date"`
	Volatility float64   `json:"volatility"`
}

// ReturnPoint is one daily log-return observation.
type ReturnPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}
