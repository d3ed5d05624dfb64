package bayes

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

// SampleConfig controls one MCMC run. Identical config and model input
// reproduce identical traces: every chain derives its own random stream from
// Seed plus the chain index, so results do not depend on goroutine
// scheduling.
type SampleConfig struct {
	Draws        int
	Tune         int
	Chains       int
	TargetAccept float64
	Seed         int64
}

// DefaultSampleConfig mirrors the sampling defaults used for the published
// Brent analyses.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{Draws: 2000, Tune: 1000, Chains: 4, TargetAccept: 0.9, Seed: 42}
}

func (c SampleConfig) validate() error {
	if c.Draws <= 0 || c.Tune <= 0 || c.Chains <= 0 {
		return samplingErrorf("draws, tune and chains must be positive (got draws=%d tune=%d chains=%d)", c.Draws, c.Tune, c.Chains)
	}
	if c.TargetAccept <= 0 || c.TargetAccept >= 1 {
		return samplingErrorf("target_accept must be in (0, 1), got %v", c.TargetAccept)
	}
	return nil
}

// Phase labels a sampling phase in progress reports.
type Phase string

const (
	PhaseTune Phase = "tune"
	PhaseDraw Phase = "draw"
)

// Progress describes how far one chain has advanced. Callbacks may be
// invoked concurrently from different chains.
type Progress struct {
	Chain     int   `json:"chain"`
	Phase     Phase `json:"phase"`
	Completed int   `json:"completed"`
	Total     int   `json:"total"`
}

type samplerOptions struct {
	progress      func(Progress)
	progressEvery int
}

// SampleOption customises a sampling run.
type SampleOption func(*samplerOptions)

// WithProgress registers a progress callback. Progress reporting is advisory
// only and has no effect on the sampled values.
func WithProgress(fn func(Progress)) SampleOption {
	return func(o *samplerOptions) { o.progress = fn }
}

// WithProgressEvery sets the iteration interval between progress reports.
func WithProgressEvery(n int) SampleOption {
	return func(o *samplerOptions) {
		if n > 0 {
			o.progressEvery = n
		}
	}
}

// Sample draws posterior samples from the model's joint distribution over the
// discrete breakpoint(s) and the continuous regime parameters. The discrete
// coordinates are updated with exact Gibbs draws from their full
// conditionals; the continuous coordinates use component-wise random-walk
// Metropolis with step sizes adapted toward TargetAccept during warmup and
// frozen afterwards. Chains run in parallel and the run aborts without a
// partial trace when ctx is cancelled.
func Sample(ctx context.Context, m *RegimeModel, cfg SampleConfig, opts ...SampleOption) (*Trace, error) {
	if m == nil {
		return nil, samplingErrorf("nil model")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := samplerOptions{progressEvery: 200}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	results := make([]*chainResult, cfg.Chains)

	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < cfg.Chains; c++ {
		c := c
		g.Go(func() error {
			res, err := runChain(gctx, m, cfg, c, o)
			if err != nil {
				return err
			}
			results[c] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := paramOrder(m.variant, m.NumRegimes())
	samples := make(map[string][][]float64, len(order))
	for _, name := range order {
		samples[name] = make([][]float64, cfg.Chains)
	}

	trace := &Trace{
		variant:     m.variant,
		n:           m.Len(),
		chains:      cfg.Chains,
		draws:       cfg.Draws,
		order:       order,
		samples:     samples,
		acceptRates: make([]float64, cfg.Chains),
		elapsed:     time.Since(start),
	}
	for c, res := range results {
		for _, name := range order {
			samples[name][c] = res.samples[name]
		}
		trace.divergences += res.divergences
		trace.acceptRates[c] = res.acceptRate
	}
	return trace, nil
}

func paramOrder(v Variant, regimes int) []string {
	var order []string
	if v == SingleChangepoint {
		order = append(order, "tau")
	} else {
		order = append(order, "tau1", "tau2")
	}
	for r := 1; r <= regimes; r++ {
		order = append(order, fmt.Sprintf("mu%d", r))
	}
	for r := 1; r <= regimes; r++ {
		order = append(order, fmt.Sprintf("sigma%d", r))
	}
	return order
}

type chainResult struct {
	samples     map[string][]float64
	divergences int
	acceptRate  float64
}

// chainState carries the mutable state of one Markov chain.
type chainState struct {
	m   *RegimeModel
	rng *rand.Rand

	breaks []int
	mu     []float64
	ls     []float64 // log scales; sampling in log space keeps the density finite
	sigma  []float64

	segLL []float64 // cached per-regime segment log likelihood

	steps []float64 // proposal step per continuous coordinate: mu... then ls...

	// Gibbs scratch
	lp      [][]float64
	cum     [][]float64
	weights []float64

	proposed    int
	accepted    int
	divergences int

	lastAccProb float64
}

func runChain(ctx context.Context, m *RegimeModel, cfg SampleConfig, chain int, o samplerOptions) (*chainResult, error) {
	st, err := newChainState(m, uint64(cfg.Seed)+uint64(chain))
	if err != nil {
		return nil, err
	}

	regimes := m.NumRegimes()
	order := paramOrder(m.variant, regimes)
	res := &chainResult{samples: make(map[string][]float64, len(order))}
	for _, name := range order {
		res.samples[name] = make([]float64, 0, cfg.Draws)
	}

	total := cfg.Tune + cfg.Draws
	for iter := 0; iter < total; iter++ {
		if iter%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		warming := iter < cfg.Tune
		st.updateContinuous(warming, iter, cfg.TargetAccept)
		st.updateBreaks()

		if !warming {
			k := len(st.breaks)
			for i, name := range order[:k] {
				res.samples[name] = append(res.samples[name], float64(st.breaks[i]))
			}
			for r := 0; r < regimes; r++ {
				res.samples[order[k+r]] = append(res.samples[order[k+r]], st.mu[r])
				res.samples[order[k+regimes+r]] = append(res.samples[order[k+regimes+r]], st.sigma[r])
			}
		}

		if o.progress != nil && ((iter+1)%o.progressEvery == 0 || iter+1 == cfg.Tune || iter+1 == total) {
			p := Progress{Chain: chain, Phase: PhaseDraw, Completed: iter + 1 - cfg.Tune, Total: cfg.Draws}
			if warming {
				p = Progress{Chain: chain, Phase: PhaseTune, Completed: iter + 1, Total: cfg.Tune}
			}
			o.progress(p)
		}
	}

	res.divergences = st.divergences
	if st.proposed > 0 {
		res.acceptRate = float64(st.accepted) / float64(st.proposed)
	}
	return res, nil
}

func newChainState(m *RegimeModel, seed uint64) (*chainState, error) {
	n := m.Len()
	regimes := m.NumRegimes()
	st := &chainState{
		m:       m,
		rng:     rand.New(rand.NewSource(seed)),
		mu:      make([]float64, regimes),
		ls:      make([]float64, regimes),
		sigma:   make([]float64, regimes),
		segLL:   make([]float64, regimes),
		steps:   make([]float64, 2*regimes),
		weights: make([]float64, n),
	}
	st.lp = make([][]float64, regimes)
	st.cum = make([][]float64, regimes)
	for r := range st.lp {
		st.lp[r] = make([]float64, n)
		st.cum[r] = make([]float64, n+1)
	}

	// Overdispersed starting points: breakpoints drawn uniformly from their
	// support, regime parameters from the implied segment statistics.
	switch m.variant {
	case SingleChangepoint:
		st.breaks = []int{1 + st.rng.Intn(n-2)}
	case TwoChangepoint:
		t1 := 1 + st.rng.Intn(n-3)
		t2 := t1 + 1 + st.rng.Intn(n-2-t1)
		st.breaks = []int{t1, t2}
	}

	bounds := st.segmentBounds()
	pooledSD := stddev(m.data)
	for r := 0; r < regimes; r++ {
		a, b := bounds[r][0], bounds[r][1]
		mu, sd := meanStd(m.data[a:b])
		if sd < 1e-6 {
			sd = math.Max(pooledSD, 1e-6)
		}
		st.mu[r] = mu
		st.sigma[r] = sd
		st.ls[r] = math.Log(sd)
		st.segLL[r] = m.segmentLogLik(a, b, mu, sd)

		st.steps[r] = math.Max(sd/math.Sqrt(float64(n)), 1e-5)
		st.steps[regimes+r] = 0.1
	}

	if !isFinite(st.logPosterior()) {
		return nil, samplingErrorf("degenerate model: initial log posterior is not finite")
	}
	return st, nil
}

// segmentBounds returns [a, b) index bounds per regime for the current breaks.
func (st *chainState) segmentBounds() [][2]int {
	n := st.m.Len()
	out := make([][2]int, len(st.breaks)+1)
	prev := 0
	for r, b := range st.breaks {
		out[r] = [2]int{prev, b}
		prev = b
	}
	out[len(st.breaks)] = [2]int{prev, n}
	return out
}

func (st *chainState) logPosterior() float64 {
	lp := 0.0
	for r := range st.segLL {
		lp += st.segLL[r] + st.m.logPriorMean(st.mu[r]) + st.m.logPriorScale(st.sigma[r]) + st.ls[r]
	}
	return lp
}

// updateContinuous performs one component-wise Metropolis sweep over the
// regime means and log scales. Step sizes adapt toward target during warmup
// with a decaying Robbins-Monro rate and stay frozen afterwards.
func (st *chainState) updateContinuous(warming bool, iter int, target float64) {
	bounds := st.segmentBounds()
	regimes := len(st.mu)
	eta := 0.0
	if warming {
		eta = 1.0 / math.Sqrt(float64(iter+1))
	}

	for r := 0; r < regimes; r++ {
		a, b := bounds[r][0], bounds[r][1]

		// Mean coordinate.
		cur := st.segLL[r] + st.m.logPriorMean(st.mu[r])
		prop := st.mu[r] + st.steps[r]*st.rng.NormFloat64()
		propLL := st.m.segmentLogLik(a, b, prop, st.sigma[r])
		next := propLL + st.m.logPriorMean(prop)
		if st.metropolis(next-cur, warming) {
			st.mu[r] = prop
			st.segLL[r] = propLL
		}
		if warming {
			st.steps[r] = clampStep(st.steps[r] * math.Exp(eta*(st.lastAccProb-target)))
		}

		// Log-scale coordinate (Jacobian term keeps the density proper).
		cur = st.segLL[r] + st.m.logPriorScale(st.sigma[r]) + st.ls[r]
		propLS := st.ls[r] + st.steps[regimes+r]*st.rng.NormFloat64()
		propSigma := math.Exp(propLS)
		propLL = st.m.segmentLogLik(a, b, st.mu[r], propSigma)
		next = propLL + st.m.logPriorScale(propSigma) + propLS
		if st.metropolis(next-cur, warming) {
			st.ls[r] = propLS
			st.sigma[r] = propSigma
			st.segLL[r] = propLL
		}
		if warming {
			st.steps[regimes+r] = clampStep(st.steps[regimes+r] * math.Exp(eta*(st.lastAccProb-target)))
		}
	}
}

// metropolis accepts or rejects a proposal with log density delta relative
// to the current state, recording the acceptance probability for warmup
// adaptation. A non-finite delta marks the proposal as divergent.
func (st *chainState) metropolis(delta float64, warming bool) bool {
	if !warming {
		st.proposed++
	}
	if math.IsNaN(delta) || math.IsInf(delta, 1) {
		if !warming {
			st.divergences++
		}
		st.lastAccProb = 0
		return false
	}
	acc := math.Exp(math.Min(0, delta))
	st.lastAccProb = acc
	if st.rng.Float64() < acc {
		if !warming {
			st.accepted++
		}
		return true
	}
	return false
}

// updateBreaks redraws each breakpoint from its exact full conditional given
// the current regime parameters, using prefix sums of per-observation log
// densities so one sweep costs O(regimes * N).
func (st *chainState) updateBreaks() {
	m := st.m
	n := m.Len()
	regimes := len(st.mu)
	for r := 0; r < regimes; r++ {
		m.pointLogLiks(st.lp[r], st.mu[r], st.sigma[r])
		cum := st.cum[r]
		cum[0] = 0
		for i, v := range st.lp[r] {
			cum[i+1] = cum[i] + v
		}
	}

	switch m.variant {
	case SingleChangepoint:
		// tau in [1, n-2]; observations < tau belong to regime 1.
		lo, hi := 1, n-2
		w := st.weights[:0]
		for t := lo; t <= hi; t++ {
			w = append(w, st.cum[0][t]+st.cum[1][n]-st.cum[1][t])
		}
		t := lo + st.sampleCategorical(w)
		st.breaks[0] = t
		st.segLL[0] = st.cum[0][t]
		st.segLL[1] = st.cum[1][n] - st.cum[1][t]

	case TwoChangepoint:
		tau2 := st.breaks[1]

		// tau1 | tau2 in [1, tau2-1].
		lo, hi := 1, tau2-1
		w := st.weights[:0]
		for t := lo; t <= hi; t++ {
			w = append(w, st.cum[0][t]+st.cum[1][tau2]-st.cum[1][t])
		}
		tau1 := lo + st.sampleCategorical(w)
		st.breaks[0] = tau1

		// tau2 | tau1 in [tau1+1, n-2].
		lo, hi = tau1+1, n-2
		w = st.weights[:0]
		for t := lo; t <= hi; t++ {
			w = append(w, st.cum[1][t]-st.cum[1][tau1]+st.cum[2][n]-st.cum[2][t])
		}
		tau2 = lo + st.sampleCategorical(w)
		st.breaks[1] = tau2

		st.segLL[0] = st.cum[0][tau1]
		st.segLL[1] = st.cum[1][tau2] - st.cum[1][tau1]
		st.segLL[2] = st.cum[2][n] - st.cum[2][tau2]
	}
}

// sampleCategorical draws an index proportional to exp(logWeights).
func (st *chainState) sampleCategorical(logWeights []float64) int {
	maxW := math.Inf(-1)
	for _, w := range logWeights {
		if w > maxW {
			maxW = w
		}
	}
	var total float64
	for i, w := range logWeights {
		e := math.Exp(w - maxW)
		total += e
		logWeights[i] = e
	}
	u := st.rng.Float64() * total
	var acc float64
	for i, e := range logWeights {
		acc += e
		if u < acc {
			return i
		}
	}
	return len(logWeights) - 1
}

func clampStep(s float64) float64 {
	return math.Min(math.Max(s, 1e-8), 1e3)
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

func stddev(xs []float64) float64 {
	_, sd := meanStd(xs)
	return sd
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
