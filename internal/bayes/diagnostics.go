package bayes

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Convergence gates. A run is presented as reliable only when all three hold.
const (
	RhatThreshold = 1.05
	ESSThreshold  = 400.0
)

// ParamDiagnostics holds per-parameter convergence statistics.
type ParamDiagnostics struct {
	Rhat float64 `json:"rhat"`
	ESS  float64 `json:"ess"`
}

// ConvergenceReport summarises the convergence diagnostics of one trace.
// Converged is a decision value, not an error: downstream reporting must
// surface a warning instead of presenting estimates as reliable when it is
// false.
type ConvergenceReport struct {
	RhatMax       float64                     `json:"rhat_max"`
	RhatConverged bool                        `json:"rhat_converged"`
	ESSMin        float64                     `json:"ess_min"`
	ESSSufficient bool                        `json:"ess_sufficient"`
	Divergences   int                         `json:"n_divergences"`
	DivergencesOK bool                        `json:"divergences_ok"`
	Converged     bool                        `json:"converged"`
	Parameters    map[string]ParamDiagnostics `json:"parameters"`
}

// Diagnose computes rank-normalized split R-hat and bulk effective sample
// size for every parameter in the trace, plus the divergence count, and
// derives the overall convergence verdict.
func Diagnose(t *Trace) (*ConvergenceReport, error) {
	if t == nil {
		return nil, errors.New("diagnose: nil trace")
	}
	if t.draws < 4 {
		return nil, errors.New("diagnose: need at least 4 draws per chain")
	}

	rep := &ConvergenceReport{
		RhatMax:    math.Inf(-1),
		ESSMin:     math.Inf(1),
		Parameters: make(map[string]ParamDiagnostics, len(t.order)),
	}
	for _, name := range t.order {
		chains := make([][]float64, t.chains)
		for c := 0; c < t.chains; c++ {
			chains[c] = t.Chain(name, c)
		}
		split := splitChains(chains)
		z := rankNormalize(split)

		d := ParamDiagnostics{Rhat: potentialScaleReduction(z), ESS: effectiveSampleSize(z)}
		rep.Parameters[name] = d
		if d.Rhat > rep.RhatMax {
			rep.RhatMax = d.Rhat
		}
		if d.ESS < rep.ESSMin {
			rep.ESSMin = d.ESS
		}
	}

	rep.Divergences = t.divergences
	rep.RhatConverged = rep.RhatMax < RhatThreshold
	rep.ESSSufficient = rep.ESSMin > ESSThreshold
	rep.DivergencesOK = rep.Divergences == 0
	rep.Converged = rep.RhatConverged && rep.ESSSufficient && rep.DivergencesOK
	return rep, nil
}

// splitChains halves every chain, doubling the chain count. The middle draw
// of an odd-length chain is dropped so both halves stay equal length.
func splitChains(chains [][]float64) [][]float64 {
	out := make([][]float64, 0, 2*len(chains))
	for _, c := range chains {
		h := len(c) / 2
		out = append(out, c[:h], c[len(c)-h:])
	}
	return out
}

// rankNormalize replaces every draw with its normal score: draws are pooled,
// ranked with average ranks for ties (so discrete parameters are handled),
// and mapped through the standard normal quantile function using the
// Blom-style offset (r - 3/8) / (S + 1/4).
func rankNormalize(chains [][]float64) [][]float64 {
	type entry struct {
		val   float64
		chain int
		idx   int
	}
	var total int
	for _, c := range chains {
		total += len(c)
	}
	pool := make([]entry, 0, total)
	for ci, c := range chains {
		for i, v := range c {
			pool = append(pool, entry{val: v, chain: ci, idx: i})
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].val < pool[j].val })

	ranks := make([]float64, total)
	for i := 0; i < total; {
		j := i
		for j < total && pool[j].val == pool[i].val {
			j++
		}
		avg := float64(i+j+1) / 2 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			ranks[k] = avg
		}
		i = j
	}

	norm := distuv.UnitNormal
	out := make([][]float64, len(chains))
	for ci, c := range chains {
		out[ci] = make([]float64, len(c))
	}
	s := float64(total)
	for k, e := range pool {
		out[e.chain][e.idx] = norm.Quantile((ranks[k] - 0.375) / (s + 0.25))
	}
	return out
}

// potentialScaleReduction computes split R-hat: the square root of the ratio
// of the pooled-variance estimate to the mean within-chain variance.
func potentialScaleReduction(chains [][]float64) float64 {
	c := float64(len(chains))
	n := float64(len(chains[0]))
	if c < 2 || n < 2 {
		return math.NaN()
	}

	means := make([]float64, len(chains))
	var w, grand float64
	for i, ch := range chains {
		m, v := meanVar(ch)
		means[i] = m
		w += v
		grand += m
	}
	w /= c
	grand /= c

	var b float64
	for _, m := range means {
		d := m - grand
		b += d * d
	}
	b *= n / (c - 1)

	if w <= 1e-300 {
		return 1
	}
	varPlus := (n-1)/n*w + b/n
	return math.Sqrt(varPlus / w)
}

// effectiveSampleSize computes the bulk ESS with the multi-chain
// autocorrelation estimator and Geyer's initial monotone positive sequence
// truncation.
func effectiveSampleSize(chains [][]float64) float64 {
	c := len(chains)
	n := len(chains[0])
	total := float64(c * n)
	if n < 4 {
		return total
	}

	means := make([]float64, c)
	var meanVarW, grand float64
	for i, ch := range chains {
		m, v := meanVar(ch)
		means[i] = m
		meanVarW += v
		grand += m
	}
	meanVarW /= float64(c)
	grand /= float64(c)

	var b float64
	if c > 1 {
		for _, m := range means {
			d := m - grand
			b += d * d
		}
		b *= float64(n) / float64(c-1)
	}
	varPlus := meanVarW*float64(n-1)/float64(n) + b/float64(n)
	if varPlus <= 1e-300 {
		return total
	}

	// Biased (1/n) autocovariances per chain, averaged across chains.
	acov := func(lag int) float64 {
		var sum float64
		for i, ch := range chains {
			m := means[i]
			var s float64
			for k := 0; k+lag < n; k++ {
				s += (ch[k] - m) * (ch[k+lag] - m)
			}
			sum += s / float64(n)
		}
		return sum / float64(c)
	}

	rho := func(lag int) float64 {
		return 1 - (meanVarW-acov(lag))/varPlus
	}

	// Pair sums of autocorrelations; stop at the first non-positive pair and
	// enforce monotone decrease.
	prev := math.Inf(1)
	sum := 0.0
	for k := 0; 2*k+1 < n; k++ {
		var p float64
		if k == 0 {
			p = 1 + rho(1)
		} else {
			p = rho(2*k) + rho(2*k+1)
		}
		if p <= 0 {
			break
		}
		if p > prev {
			p = prev
		}
		prev = p
		sum += p
	}
	tau := -1 + 2*sum
	if tau < 1 {
		tau = 1
	}
	return total / tau
}

func meanVar(xs []float64) (float64, float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / n
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, ss / (n - 1)
}
