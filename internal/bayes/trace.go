package bayes

import "time"

// Trace is the full collection of posterior samples across all chains and
// iterations for one sampling run. Samples are stored per parameter as
// [chain][draw]; within a chain the draw order is the Markov chain order.
// A Trace is immutable once returned by Sample.
type Trace struct {
	variant Variant
	n       int
	chains  int
	draws   int

	order   []string
	samples map[string][][]float64

	divergences int
	acceptRates []float64
	elapsed     time.Duration
}

// Variant returns the model variant the trace was sampled from.
func (t *Trace) Variant() Variant { return t.variant }

// SeriesLen returns the observation count of the underlying model.
func (t *Trace) SeriesLen() int { return t.n }

// Chains returns the number of independent chains.
func (t *Trace) Chains() int { return t.chains }

// Draws returns the number of retained post-warmup draws per chain.
func (t *Trace) Draws() int { return t.draws }

// NumSamples returns the total number of retained draws across chains.
func (t *Trace) NumSamples() int { return t.chains * t.draws }

// ParamNames returns the parameter names in their canonical order
// (breakpoints first, then regime means, then regime scales).
func (t *Trace) ParamNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Chain returns the draws of one parameter from one chain. The returned
// slice is the trace's backing storage and must not be mutated.
func (t *Trace) Chain(param string, chain int) []float64 {
	cs, ok := t.samples[param]
	if !ok || chain < 0 || chain >= len(cs) {
		return nil
	}
	return cs[chain]
}

// Flatten returns all draws of one parameter in chain-major order. Draws at
// the same flat position across parameters come from the same joint sample,
// which is what the paired-difference summaries rely on.
func (t *Trace) Flatten(param string) []float64 {
	cs, ok := t.samples[param]
	if !ok {
		return nil
	}
	out := make([]float64, 0, t.chains*t.draws)
	for _, c := range cs {
		out = append(out, c...)
	}
	return out
}

// Divergences returns the count of numerically divergent proposals seen
// across all chains during the retained phase.
func (t *Trace) Divergences() int { return t.divergences }

// AcceptRates returns the post-warmup Metropolis acceptance rate per chain.
func (t *Trace) AcceptRates() []float64 {
	out := make([]float64, len(t.acceptRates))
	copy(out, t.acceptRates)
	return out
}

// Elapsed returns the wall-clock sampling duration.
func (t *Trace) Elapsed() time.Duration { return t.elapsed }
