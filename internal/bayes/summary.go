package bayes

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// epsilon guards percent-change denominators when the pre-regime parameter
// is near zero (daily log-return means usually are).
const epsilon = 1e-10

// BreakpointSummary is the posterior summary of one discrete breakpoint.
// MeanIndex is the posterior mean of the sampled indices truncated to an
// integer; dashboards key off the calendar date looked up at exactly that
// index, so the truncation convention is part of the contract.
type BreakpointSummary struct {
	Name         string       `json:"name"`
	Samples      []int        `json:"samples"`
	Dates        []time.Time  `json:"dates"`
	MeanIndex    int          `json:"mean_index"`
	MeanDate     time.Time    `json:"mean_date"`
	HDI95Indices [2]int       `json:"hdi_95_indices"`
	HDI95Dates   [2]time.Time `json:"hdi_95_dates"`
	Probability  float64      `json:"probability"`
}

// ChangepointPosterior is the posterior over the structural break location(s).
type ChangepointPosterior struct {
	Model           string              `json:"model"`
	Breakpoints     []BreakpointSummary `json:"breakpoints"`
	RegimeDurations []int               `json:"regime_durations,omitempty"`
}

// Primary returns the first (or only) breakpoint summary.
func (p *ChangepointPosterior) Primary() *BreakpointSummary {
	if p == nil || len(p.Breakpoints) == 0 {
		return nil
	}
	return &p.Breakpoints[0]
}

// ChangeStat summarises the posterior of a between-regime parameter delta.
type ChangeStat struct {
	Mean                float64    `json:"mean"`
	Std                 float64    `json:"std"`
	HDI95               [2]float64 `json:"hdi_95"`
	ProbabilityPositive float64    `json:"probability_positive"`
	ProbabilityNegative float64    `json:"probability_negative"`
}

// RegimeShift quantifies the parameter change across one regime boundary.
type RegimeShift struct {
	FromRegime        int        `json:"from_regime"`
	ToRegime          int        `json:"to_regime"`
	MeanChange        ChangeStat `json:"mean_change"`
	VolatilityChange  ChangeStat `json:"volatility_change"`
	MeanPercent       float64    `json:"mean_percent"`
	VolatilityPercent float64    `json:"volatility_percent"`
}

// ParameterChangeSummary holds one RegimeShift per adjacent regime pair.
// No cross-regime aggregate beyond adjacent pairs is defined.
type ParameterChangeSummary struct {
	Model  string        `json:"model"`
	Shifts []RegimeShift `json:"shifts"`
}

// Primary returns the first regime shift (the only one for single-changepoint
// models).
func (s *ParameterChangeSummary) Primary() *RegimeShift {
	if s == nil || len(s.Shifts) == 0 {
		return nil
	}
	return &s.Shifts[0]
}

func modelLabel(v Variant) string {
	if v == TwoChangepoint {
		return "two_changepoints"
	}
	return "single_changepoint"
}

// SummarizeChangepoint extracts the breakpoint posterior from a trace,
// mapping sampled indices to calendar dates by direct indexing. It is a pure
// function of the trace: calling it twice on the same trace yields identical
// results.
func SummarizeChangepoint(t *Trace, dates []time.Time) (*ChangepointPosterior, error) {
	if t == nil {
		return nil, errors.New("summarize changepoint: nil trace")
	}
	if len(dates) != t.n {
		return nil, fmt.Errorf("summarize changepoint: %d dates for %d observations", len(dates), t.n)
	}

	k := t.variant.Breakpoints()
	out := &ChangepointPosterior{Model: modelLabel(t.variant)}
	for _, name := range t.order[:k] {
		raw := t.Flatten(name)

		samples := make([]int, len(raw))
		sampleDates := make([]time.Time, len(raw))
		var sum float64
		for i, v := range raw {
			idx := int(v)
			samples[i] = idx
			sampleDates[i] = dates[idx]
			sum += v
		}
		meanIdx := int(sum / float64(len(raw)))

		lo, hi := HDI(raw, 0.95)
		loIdx, hiIdx := int(lo), int(hi)

		var atMean int
		for _, idx := range samples {
			if idx == meanIdx {
				atMean++
			}
		}

		out.Breakpoints = append(out.Breakpoints, BreakpointSummary{
			Name:         name,
			Samples:      samples,
			Dates:        sampleDates,
			MeanIndex:    meanIdx,
			MeanDate:     dates[meanIdx],
			HDI95Indices: [2]int{loIdx, hiIdx},
			HDI95Dates:   [2]time.Time{dates[loIdx], dates[hiIdx]},
			Probability:  float64(atMean) / float64(len(samples)),
		})
	}

	if t.variant == TwoChangepoint {
		m1 := out.Breakpoints[0].MeanIndex
		m2 := out.Breakpoints[1].MeanIndex
		out.RegimeDurations = []int{m1, m2 - m1, t.n - m2}
	}
	return out, nil
}

// SummarizeParameterChanges quantifies the mean and volatility shifts across
// every adjacent regime boundary. Differences are paired by draw, never
// independently resampled.
func SummarizeParameterChanges(t *Trace) (*ParameterChangeSummary, error) {
	if t == nil {
		return nil, errors.New("summarize parameter changes: nil trace")
	}

	regimes := t.variant.Breakpoints() + 1
	out := &ParameterChangeSummary{Model: modelLabel(t.variant)}
	for r := 1; r < regimes; r++ {
		muPre := t.Flatten(fmt.Sprintf("mu%d", r))
		muPost := t.Flatten(fmt.Sprintf("mu%d", r+1))
		sigPre := t.Flatten(fmt.Sprintf("sigma%d", r))
		sigPost := t.Flatten(fmt.Sprintf("sigma%d", r+1))

		shift := RegimeShift{FromRegime: r, ToRegime: r + 1}
		shift.MeanChange = changeStat(muPre, muPost)
		shift.VolatilityChange = changeStat(sigPre, sigPost)

		var mp, vp float64
		for i := range muPre {
			mp += (muPost[i] - muPre[i]) / math.Abs(muPre[i]+epsilon) * 100
			vp += (sigPost[i] - sigPre[i]) / (sigPre[i] + epsilon) * 100
		}
		shift.MeanPercent = mp / float64(len(muPre))
		shift.VolatilityPercent = vp / float64(len(sigPre))

		out.Shifts = append(out.Shifts, shift)
	}
	return out, nil
}

func changeStat(pre, post []float64) ChangeStat {
	diffs := make([]float64, len(pre))
	var pos, neg int
	for i := range pre {
		d := post[i] - pre[i]
		diffs[i] = d
		if d > 0 {
			pos++
		} else if d < 0 {
			neg++
		}
	}
	mean, sd := meanStd(diffs)
	lo, hi := HDI(diffs, 0.95)
	n := float64(len(diffs))
	return ChangeStat{
		Mean:                mean,
		Std:                 sd,
		HDI95:               [2]float64{lo, hi},
		ProbabilityPositive: float64(pos) / n,
		ProbabilityNegative: float64(neg) / n,
	}
}

// HDI returns the narrowest interval containing the given probability mass of
// the (assumed unimodal) sample distribution.
func HDI(samples []float64, prob float64) (float64, float64) {
	if len(samples) == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	n := len(sorted)
	span := int(math.Floor(prob * float64(n)))
	if span >= n {
		return sorted[0], sorted[n-1]
	}
	bestLo := 0
	bestWidth := math.Inf(1)
	for i := 0; i+span < n; i++ {
		w := sorted[i+span] - sorted[i]
		if w < bestWidth {
			bestWidth = w
			bestLo = i
		}
	}
	return sorted[bestLo], sorted[bestLo+span]
}
