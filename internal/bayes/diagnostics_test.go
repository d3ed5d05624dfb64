package bayes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// makeTrace assembles a trace directly from per-parameter chain draws.
func makeTrace(variant Variant, n int, params map[string][][]float64, order []string, divergences int) *Trace {
	chains := len(params[order[0]])
	draws := len(params[order[0]][0])
	return &Trace{
		variant:     variant,
		n:           n,
		chains:      chains,
		draws:       draws,
		order:       order,
		samples:     params,
		divergences: divergences,
		acceptRates: make([]float64, chains),
	}
}

func normalChains(seed uint64, chains, draws int, mu, sigma float64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, chains)
	for c := range out {
		out[c] = make([]float64, draws)
		for i := range out[c] {
			out[c][i] = mu + sigma*rng.NormFloat64()
		}
	}
	return out
}

func TestDiagnoseRejectsBadInput(t *testing.T) {
	_, err := Diagnose(nil)
	require.Error(t, err)

	short := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"tau": {{1, 2, 3}},
	}, []string{"tau"}, 0)
	_, err = Diagnose(short)
	require.Error(t, err)
}

func TestDiagnoseWellMixedTrace(t *testing.T) {
	tr := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"tau": normalChains(1, 4, 1000, 25, 3),
		"mu1": normalChains(2, 4, 1000, 0, 0.01),
	}, []string{"tau", "mu1"}, 0)

	rep, err := Diagnose(tr)
	require.NoError(t, err)

	require.Len(t, rep.Parameters, 2)
	require.Less(t, rep.RhatMax, RhatThreshold)
	require.Greater(t, rep.ESSMin, ESSThreshold)
	require.True(t, rep.RhatConverged)
	require.True(t, rep.ESSSufficient)
	require.True(t, rep.DivergencesOK)
	require.True(t, rep.Converged)

	for name, d := range rep.Parameters {
		require.LessOrEqual(t, d.Rhat, rep.RhatMax, "param %s", name)
		require.GreaterOrEqual(t, d.ESS, rep.ESSMin, "param %s", name)
	}
}

func TestDiagnoseDetectsDisjointChains(t *testing.T) {
	chains := normalChains(3, 4, 500, 0, 1)
	for i := range chains[0] {
		chains[0][i] += 8 // one chain exploring a different mode
	}
	tr := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"mu1": chains,
	}, []string{"mu1"}, 0)

	rep, err := Diagnose(tr)
	require.NoError(t, err)
	require.Greater(t, rep.RhatMax, RhatThreshold)
	require.False(t, rep.RhatConverged)
	require.False(t, rep.Converged)
}

func TestDiagnoseDivergencesBlockConvergence(t *testing.T) {
	tr := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"tau": normalChains(4, 4, 1000, 25, 3),
	}, []string{"tau"}, 2)

	rep, err := Diagnose(tr)
	require.NoError(t, err)
	require.True(t, rep.RhatConverged)
	require.True(t, rep.ESSSufficient)
	require.Equal(t, 2, rep.Divergences)
	require.False(t, rep.DivergencesOK)
	require.False(t, rep.Converged)
}

func TestDiagnoseConstantParameter(t *testing.T) {
	chains := make([][]float64, 4)
	for c := range chains {
		chains[c] = make([]float64, 300)
		for i := range chains[c] {
			chains[c][i] = 42
		}
	}
	tr := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"tau": chains,
	}, []string{"tau"}, 0)

	rep, err := Diagnose(tr)
	require.NoError(t, err)
	require.Equal(t, 1.0, rep.Parameters["tau"].Rhat)
	require.Equal(t, 1200.0, rep.Parameters["tau"].ESS)
	require.True(t, rep.Converged)
}

func TestDiagnoseHandlesDiscreteTies(t *testing.T) {
	// Heavily tied integer draws, as a breakpoint posterior produces.
	rng := rand.New(rand.NewSource(5))
	chains := make([][]float64, 4)
	for c := range chains {
		chains[c] = make([]float64, 800)
		for i := range chains[c] {
			chains[c][i] = float64(23 + rng.Intn(5))
		}
	}
	tr := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"tau": chains,
	}, []string{"tau"}, 0)

	rep, err := Diagnose(tr)
	require.NoError(t, err)
	d := rep.Parameters["tau"]
	require.False(t, math.IsNaN(d.Rhat), "rhat is NaN")
	require.Less(t, d.Rhat, RhatThreshold)
	require.Greater(t, d.ESS, ESSThreshold)
}
