package bayes

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Variant selects the number of structural breaks in the regime model.
type Variant string

const (
	SingleChangepoint Variant = "single"
	TwoChangepoint    Variant = "two"
)

// Breakpoints returns the number of discrete breakpoints for the variant,
// or 0 for an unknown variant.
func (v Variant) Breakpoints() int {
	switch v {
	case SingleChangepoint:
		return 1
	case TwoChangepoint:
		return 2
	default:
		return 0
	}
}

// Priors holds the hyperparameters of the weakly-informative priors placed on
// the per-regime parameters. Defaults reflect daily log returns: regime means
// are Normal(0, MeanScale) and regime scales are HalfNormal(ScaleScale).
type Priors struct {
	MeanScale  float64
	ScaleScale float64
}

// DefaultPriors returns the priors used for daily log-return series.
func DefaultPriors() Priors {
	return Priors{MeanScale: 0.1, ScaleScale: 0.1}
}

func (p Priors) normalized() Priors {
	if p.MeanScale <= 0 {
		p.MeanScale = 0.1
	}
	if p.ScaleScale <= 0 {
		p.ScaleScale = 0.1
	}
	return p
}

// RegimeModel is an immutable description of a mixture-of-regimes probability
// model over a fixed observation series: K discrete breakpoints partition the
// index range into K+1 contiguous non-empty segments, each governed by its
// own Normal(mean, scale) distribution.
type RegimeModel struct {
	variant Variant
	data    []float64
	priors  Priors

	meanPrior  distuv.Normal
	scalePrior distuv.Normal // half-normal via folding
}

// Build validates the series against the requested variant and returns a
// model description usable by the sampler. The series must be strictly
// longer than 3*(K+1) observations so every segment stays non-empty with
// room to move; shorter input fails with *ModelBuildError.
func Build(series []float64, variant Variant, priors Priors) (*RegimeModel, error) {
	k := variant.Breakpoints()
	if k == 0 {
		return nil, buildErrorf("unknown variant %q", variant)
	}
	floor := 3 * (k + 1)
	if len(series) <= floor {
		return nil, buildErrorf("series of length %d cannot support %d regimes (need more than %d observations)", len(series), k+1, floor)
	}
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, buildErrorf("series contains non-finite value at index %d", i)
		}
	}

	p := priors.normalized()
	data := make([]float64, len(series))
	copy(data, series)

	return &RegimeModel{
		variant:    variant,
		data:       data,
		priors:     p,
		meanPrior:  distuv.Normal{Mu: 0, Sigma: p.MeanScale},
		scalePrior: distuv.Normal{Mu: 0, Sigma: p.ScaleScale},
	}, nil
}

// Variant returns the model variant.
func (m *RegimeModel) Variant() Variant { return m.variant }

// Len returns the number of observations.
func (m *RegimeModel) Len() int { return len(m.data) }

// NumRegimes returns the number of contiguous regimes.
func (m *RegimeModel) NumRegimes() int { return m.variant.Breakpoints() + 1 }

// Priors returns the prior hyperparameters the model was built with.
func (m *RegimeModel) Priors() Priors { return m.priors }

// RegimeOf returns the regime index governing observation i under the given
// ordered breakpoints. Observation i belongs to regime r iff
// breaks[r-1] <= i < breaks[r] (with virtual breaks at 0 and N).
func (m *RegimeModel) RegimeOf(breaks []int, i int) int {
	for r, b := range breaks {
		if i < b {
			return r
		}
	}
	return len(breaks)
}

// validBreaks reports whether the breakpoints are ordered and leave every
// segment non-empty, with at least two observations in the final segment
// (matching the tau <= N-2 support of the discrete prior).
func (m *RegimeModel) validBreaks(breaks []int) bool {
	n := len(m.data)
	prev := 0
	for _, b := range breaks {
		if b <= prev || b > n-2 {
			return false
		}
		prev = b
	}
	return true
}

// logPriorMean returns the log density of the Normal prior on a regime mean.
func (m *RegimeModel) logPriorMean(mu float64) float64 {
	return m.meanPrior.LogProb(mu)
}

// logPriorScale returns the log density of the HalfNormal prior on a regime
// scale. The half-normal density is twice the folded normal density on the
// positive half-line.
func (m *RegimeModel) logPriorScale(sigma float64) float64 {
	if sigma <= 0 {
		return math.Inf(-1)
	}
	return math.Ln2 + m.scalePrior.LogProb(sigma)
}

// segmentLogLik returns the Normal log likelihood of observations [a, b)
// under the given regime parameters.
func (m *RegimeModel) segmentLogLik(a, b int, mu, sigma float64) float64 {
	if b <= a {
		return 0
	}
	var ss float64
	for _, x := range m.data[a:b] {
		d := (x - mu) / sigma
		ss += d * d
	}
	n := float64(b - a)
	return -n*(math.Log(sigma)+0.5*math.Log(2*math.Pi)) - 0.5*ss
}

// pointLogLiks fills dst[i] with the Normal log density of observation i
// under the given regime parameters.
func (m *RegimeModel) pointLogLiks(dst []float64, mu, sigma float64) {
	c := -math.Log(sigma) - 0.5*math.Log(2*math.Pi)
	inv := 1 / sigma
	for i, x := range m.data {
		d := (x - mu) * inv
		dst[i] = c - 0.5*d*d
	}
}
