// Package stats provides the small descriptive-statistics helpers the
// analysis endpoints are built on.
package stats

import (
	"math"
	"time"

	"OilScope/internal/domain/models"
)

// LogReturns computes ln(p_t / p_(t-1)) for consecutive prices. The result
// is one element shorter than the input.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = math.Log(prices[i]) - math.Log(prices[i-1])
	}
	return out
}

// RollingVolatility computes the trailing sample standard deviation of the
// return series over the given window. The first window-1 positions have no
// full window and are reported as NaN, mirroring a rolling-window frame.
func RollingVolatility(returns []float64, window int) []float64 {
	out := make([]float64, len(returns))
	for i := range out {
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = sampleStd(returns[i+1-window : i+1])
	}
	return out
}

func sampleStd(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / n
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / (n - 1))
}

// minImpactPoints is the smallest price window considered meaningful for an
// event-impact estimate.
const minImpactPoints = 10

// EventImpact compares average prices before and after an event within a
// symmetric day window. It returns nil when the window holds too few points
// or one side of the event is empty.
func EventImpact(prices []models.PricePoint, ev models.Event, windowDays int) *models.EventImpact {
	start := ev.Date.AddDate(0, 0, -windowDays)
	end := ev.Date.AddDate(0, 0, windowDays)

	var preSum, postSum float64
	var preN, postN, total int
	for _, p := range prices {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		total++
		if p.Date.Before(ev.Date) {
			preSum += p.Price
			preN++
		} else if p.Date.After(ev.Date) {
			postSum += p.Price
			postN++
		}
	}
	if total < minImpactPoints || preN == 0 || postN == 0 {
		return nil
	}

	preAvg := preSum / float64(preN)
	postAvg := postSum / float64(postN)
	return &models.EventImpact{
		EventTitle:    ev.Title,
		EventDate:     ev.Date,
		PreAvg:        preAvg,
		PostAvg:       postAvg,
		PriceChange:   postAvg - preAvg,
		PercentChange: (postAvg - preAvg) / preAvg * 100,
		WindowDays:    windowDays,
	}
}

// VolatilitySeries pairs rolling volatility values with their dates,
// dropping the leading positions that have no full window.
func VolatilitySeries(dates []time.Time, returns []float64, window int) []models.VolatilityPoint {
	vols := RollingVolatility(returns, window)
	out := make([]models.VolatilityPoint, 0, len(vols))
	for i, v := range vols {
		if math.IsNaN(v) {
			continue
		}
		out = append(out, models.VolatilityPoint{Date: dates[i], Volatility: v})
	}
	return out
}
