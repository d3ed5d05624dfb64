package bayes

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

type segmentSpec struct {
	n     int
	mu    float64
	sigma float64
}

func synthReturns(seed uint64, segs ...segmentSpec) []float64 {
	rng := rand.New(rand.NewSource(seed))
	var out []float64
	for _, s := range segs {
		for i := 0; i < s.n; i++ {
			out = append(out, s.mu+s.sigma*rng.NormFloat64())
		}
	}
	return out
}

func TestSampleRejectsBadConfig(t *testing.T) {
	m, err := Build(make([]float64, 50), SingleChangepoint, DefaultPriors())
	require.NoError(t, err)

	cases := []SampleConfig{
		{Draws: 0, Tune: 100, Chains: 2, TargetAccept: 0.9, Seed: 1},
		{Draws: 100, Tune: 0, Chains: 2, TargetAccept: 0.9, Seed: 1},
		{Draws: 100, Tune: 100, Chains: 0, TargetAccept: 0.9, Seed: 1},
		{Draws: 100, Tune: 100, Chains: 2, TargetAccept: 0, Seed: 1},
		{Draws: 100, Tune: 100, Chains: 2, TargetAccept: 1.2, Seed: 1},
	}
	for _, cfg := range cases {
		_, err := Sample(context.Background(), m, cfg)
		require.Error(t, err)
		var serr *SamplingError
		require.True(t, errors.As(err, &serr), "expected SamplingError, got %T", err)
	}
}

func TestSampleRejectsNilModel(t *testing.T) {
	_, err := Sample(context.Background(), nil, DefaultSampleConfig())
	require.Error(t, err)
}

func TestSampleAbortsOnCancelledContext(t *testing.T) {
	series := synthReturns(1, segmentSpec{n: 100, mu: 0, sigma: 0.02})
	m, err := Build(series, SingleChangepoint, DefaultPriors())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trace, err := Sample(ctx, m, SampleConfig{Draws: 500, Tune: 500, Chains: 2, TargetAccept: 0.9, Seed: 1})
	require.Error(t, err)
	require.Nil(t, trace)
}

func TestSampleTraceShape(t *testing.T) {
	series := synthReturns(2, segmentSpec{n: 80, mu: 0, sigma: 0.02})
	m, err := Build(series, SingleChangepoint, DefaultPriors())
	require.NoError(t, err)

	cfg := SampleConfig{Draws: 120, Tune: 80, Chains: 3, TargetAccept: 0.9, Seed: 5}
	trace, err := Sample(context.Background(), m, cfg)
	require.NoError(t, err)

	require.Equal(t, SingleChangepoint, trace.Variant())
	require.Equal(t, 80, trace.SeriesLen())
	require.Equal(t, 3, trace.Chains())
	require.Equal(t, 120, trace.Draws())
	require.Equal(t, 360, trace.NumSamples())
	require.Equal(t, []string{"tau", "mu1", "mu2", "sigma1", "sigma2"}, trace.ParamNames())

	for _, name := range trace.ParamNames() {
		require.Len(t, trace.Flatten(name), 360)
		for c := 0; c < 3; c++ {
			require.Len(t, trace.Chain(name, c), 120)
		}
	}
	require.Len(t, trace.AcceptRates(), 3)
	for _, r := range trace.AcceptRates() {
		require.GreaterOrEqual(t, r, 0.0)
		require.LessOrEqual(t, r, 1.0)
	}
	require.Positive(t, trace.Elapsed())
	require.Nil(t, trace.Chain("nope", 0))
	require.Nil(t, trace.Chain("tau", 3))
}

func TestSampleDeterministicForSeed(t *testing.T) {
	series := synthReturns(3, segmentSpec{n: 40, mu: 0, sigma: 0.01}, segmentSpec{n: 40, mu: 0, sigma: 0.04})
	m, err := Build(series, SingleChangepoint, DefaultPriors())
	require.NoError(t, err)

	cfg := SampleConfig{Draws: 150, Tune: 100, Chains: 2, TargetAccept: 0.9, Seed: 7}
	first, err := Sample(context.Background(), m, cfg)
	require.NoError(t, err)
	second, err := Sample(context.Background(), m, cfg)
	require.NoError(t, err)

	for _, name := range first.ParamNames() {
		require.Equal(t, first.Flatten(name), second.Flatten(name), "param %s", name)
	}
	require.Equal(t, first.Divergences(), second.Divergences())
	require.Equal(t, first.AcceptRates(), second.AcceptRates())
}

func TestSampleRecoversKnownBreak(t *testing.T) {
	// Sharp volatility regime change at index 120.
	series := synthReturns(11,
		segmentSpec{n: 120, mu: 0.0005, sigma: 0.01},
		segmentSpec{n: 80, mu: -0.001, sigma: 0.05},
	)
	m, err := Build(series, SingleChangepoint, DefaultPriors())
	require.NoError(t, err)

	cfg := SampleConfig{Draws: 500, Tune: 300, Chains: 2, TargetAccept: 0.9, Seed: 3}
	trace, err := Sample(context.Background(), m, cfg)
	require.NoError(t, err)

	taus := trace.Flatten("tau")
	var sum float64
	for _, v := range taus {
		sum += v
	}
	mean := sum / float64(len(taus))
	require.InDelta(t, 120, mean, 5, "posterior mean of tau")

	// Posterior volatility ordering must reflect the simulated regimes.
	var s1, s2 float64
	for _, v := range trace.Flatten("sigma1") {
		s1 += v
	}
	for _, v := range trace.Flatten("sigma2") {
		s2 += v
	}
	require.Less(t, s1, s2)
}

func TestSampleTwoChangepointOrdering(t *testing.T) {
	series := synthReturns(17,
		segmentSpec{n: 60, mu: 0, sigma: 0.01},
		segmentSpec{n: 60, mu: 0.002, sigma: 0.04},
		segmentSpec{n: 60, mu: -0.001, sigma: 0.015},
	)
	m, err := Build(series, TwoChangepoint, DefaultPriors())
	require.NoError(t, err)

	cfg := SampleConfig{Draws: 300, Tune: 200, Chains: 2, TargetAccept: 0.9, Seed: 9}
	trace, err := Sample(context.Background(), m, cfg)
	require.NoError(t, err)

	require.Equal(t, []string{"tau1", "tau2", "mu1", "mu2", "mu3", "sigma1", "sigma2", "sigma3"}, trace.ParamNames())

	t1 := trace.Flatten("tau1")
	t2 := trace.Flatten("tau2")
	require.Len(t, t2, len(t1))
	n := float64(trace.SeriesLen())
	for i := range t1 {
		require.Less(t, t1[i], t2[i], "draw %d", i)
		require.GreaterOrEqual(t, t1[i], 1.0)
		require.LessOrEqual(t, t2[i], n-2)
	}
}

func TestSampleReportsProgress(t *testing.T) {
	series := synthReturns(4, segmentSpec{n: 60, mu: 0, sigma: 0.02})
	m, err := Build(series, SingleChangepoint, DefaultPriors())
	require.NoError(t, err)

	var mu sync.Mutex
	var reports []Progress
	cfg := SampleConfig{Draws: 100, Tune: 100, Chains: 1, TargetAccept: 0.9, Seed: 2}
	_, err = Sample(context.Background(), m, cfg,
		WithProgress(func(p Progress) {
			mu.Lock()
			reports = append(reports, p)
			mu.Unlock()
		}),
		WithProgressEvery(50),
	)
	require.NoError(t, err)
	require.NotEmpty(t, reports)

	var sawTune, sawDrawDone bool
	for _, p := range reports {
		require.Equal(t, 0, p.Chain)
		switch p.Phase {
		case PhaseTune:
			sawTune = true
			require.Equal(t, 100, p.Total)
		case PhaseDraw:
			require.Equal(t, 100, p.Total)
			if p.Completed == p.Total {
				sawDrawDone = true
			}
		}
	}
	require.True(t, sawTune, "no tune-phase report")
	require.True(t, sawDrawDone, "no final draw report")
}
