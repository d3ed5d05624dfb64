// Package events joins detected change points against externally supplied
// market event lists.
package events

import (
	"math"
	"sort"
	"time"

	"OilScope/internal/bayes"
	"OilScope/internal/domain/models"
)

// Causation ladder thresholds in days. Fixed for compatibility with
// historical reports.
const (
	highCausationDays     = 7
	moderateCausationDays = 30
)

// Correlate joins a change-point posterior's primary breakpoint against an
// event list. Events within windowDays (inclusive) of the mean change date
// are ranked by absolute day distance, ties keeping input order. Zero
// matching events is not an error: NearbyEvents is empty and ClosestEvent is
// nil.
func Correlate(cp *bayes.ChangepointPosterior, evs []models.Event, windowDays int) models.EventCorrelation {
	bp := cp.Primary()
	if bp == nil {
		return models.EventCorrelation{}
	}
	out := models.EventCorrelation{
		ChangeDate:  bp.MeanDate,
		HDIInterval: [2]time.Time{bp.HDI95Dates[0], bp.HDI95Dates[1]},
	}

	out.NearbyEvents, out.ClosestEvent = nearby(bp.MeanDate, evs, windowDays)
	out.EventCountWithinWindow = len(out.NearbyEvents)

	for _, ev := range evs {
		if !ev.Date.Before(bp.HDI95Dates[0]) && !ev.Date.After(bp.HDI95Dates[1]) {
			out.EventsInHDI = append(out.EventsInHDI, ev)
		}
	}

	out.ProbabilityEventCausedChange = math.Min(1.0, float64(len(out.EventsInHDI))*0.3+0.1)
	if out.ClosestEvent != nil {
		out.CausationLikelihood = causationLabel(out.ClosestEvent.DaysFromChange)
	}
	return out
}

// CorrelateAll produces one correlation entry per breakpoint of a
// two-changepoint posterior (and a single entry for single-changepoint ones).
func CorrelateAll(cp *bayes.ChangepointPosterior, evs []models.Event, windowDays int) models.MultiEventCorrelation {
	var out models.MultiEventCorrelation
	for i, bp := range cp.Breakpoints {
		entry := models.ChangePointCorrelation{ChangePoint: i + 1, Date: bp.MeanDate}
		entry.NearbyEvents, entry.ClosestEvent = nearby(bp.MeanDate, evs, windowDays)
		out.ChangePoints = append(out.ChangePoints, entry)
	}
	return out
}

func nearby(changeDate time.Time, evs []models.Event, windowDays int) ([]models.CorrelatedEvent, *models.CorrelatedEvent) {
	matched := make([]models.CorrelatedEvent, 0, len(evs))
	for _, ev := range evs {
		days := daysBetween(changeDate, ev.Date)
		if abs(days) <= windowDays {
			matched = append(matched, models.CorrelatedEvent{Event: ev, DaysFromChange: days})
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return abs(matched[i].DaysFromChange) < abs(matched[j].DaysFromChange)
	})
	if len(matched) == 0 {
		return matched, nil
	}
	closest := matched[0]
	return matched, &closest
}

func causationLabel(daysFromChange int) string {
	switch d := abs(daysFromChange); {
	case d <= highCausationDays:
		return models.CausationHigh
	case d <= moderateCausationDays:
		return models.CausationModerate
	default:
		return models.CausationLow
	}
}

// daysBetween returns the signed whole-day distance from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
