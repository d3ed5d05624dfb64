package bayes

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dailyDates(n int) []time.Time {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestSummarizeChangepointTruncatesMeanIndex(t *testing.T) {
	tr := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"tau": {{10, 11, 11, 13}},
	}, []string{"tau"}, 0)
	dates := dailyDates(50)

	post, err := SummarizeChangepoint(tr, dates)
	require.NoError(t, err)
	require.Equal(t, "single_changepoint", post.Model)
	require.Len(t, post.Breakpoints, 1)

	bp := post.Primary()
	require.Equal(t, "tau", bp.Name)
	require.Equal(t, []int{10, 11, 11, 13}, bp.Samples)
	// mean 11.25 truncates to 11
	require.Equal(t, 11, bp.MeanIndex)
	require.Equal(t, dates[11], bp.MeanDate)
	require.Equal(t, [2]int{10, 13}, bp.HDI95Indices)
	require.Equal(t, [2]time.Time{dates[10], dates[13]}, bp.HDI95Dates)
	// two of four draws land exactly on the mean index
	require.Equal(t, 0.5, bp.Probability)
	require.Nil(t, post.RegimeDurations)
}

func TestSummarizeChangepointRejectsBadInput(t *testing.T) {
	_, err := SummarizeChangepoint(nil, dailyDates(10))
	require.Error(t, err)

	tr := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"tau": {{10, 11, 11, 13}},
	}, []string{"tau"}, 0)
	_, err = SummarizeChangepoint(tr, dailyDates(49))
	require.Error(t, err)
}

func TestSummarizeChangepointRegimeDurations(t *testing.T) {
	tr := makeTrace(TwoChangepoint, 50, map[string][][]float64{
		"tau1": {{20, 20, 20, 20}},
		"tau2": {{35, 37, 36, 36}},
	}, []string{"tau1", "tau2"}, 0)

	post, err := SummarizeChangepoint(tr, dailyDates(50))
	require.NoError(t, err)
	require.Equal(t, "two_changepoints", post.Model)
	require.Len(t, post.Breakpoints, 2)
	require.Equal(t, 20, post.Breakpoints[0].MeanIndex)
	require.Equal(t, 36, post.Breakpoints[1].MeanIndex)
	require.Equal(t, []int{20, 16, 14}, post.RegimeDurations)
}

func TestSummarizeChangepointIsIdempotent(t *testing.T) {
	tr := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"tau": {{10, 11, 11, 13}, {12, 10, 11, 12}},
	}, []string{"tau"}, 0)
	dates := dailyDates(50)

	first, err := SummarizeChangepoint(tr, dates)
	require.NoError(t, err)
	second, err := SummarizeChangepoint(tr, dates)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSummarizeParameterChanges(t *testing.T) {
	tr := makeTrace(SingleChangepoint, 50, map[string][][]float64{
		"tau":    {{20, 20, 20, 20}},
		"mu1":    {{0.01, 0.01, 0.01, 0.01}},
		"mu2":    {{0.03, 0.03, 0.03, 0.03}},
		"sigma1": {{0.02, 0.02, 0.02, 0.02}},
		"sigma2": {{0.01, 0.01, 0.01, 0.01}},
	}, []string{"tau", "mu1", "mu2", "sigma1", "sigma2"}, 0)

	sum, err := SummarizeParameterChanges(tr)
	require.NoError(t, err)
	require.Equal(t, "single_changepoint", sum.Model)
	require.Len(t, sum.Shifts, 1)

	s := sum.Primary()
	require.Equal(t, 1, s.FromRegime)
	require.Equal(t, 2, s.ToRegime)

	require.InDelta(t, 0.02, s.MeanChange.Mean, 1e-12)
	require.InDelta(t, 0, s.MeanChange.Std, 1e-12)
	require.Equal(t, 1.0, s.MeanChange.ProbabilityPositive)
	require.Equal(t, 0.0, s.MeanChange.ProbabilityNegative)

	require.InDelta(t, -0.01, s.VolatilityChange.Mean, 1e-12)
	require.Equal(t, 0.0, s.VolatilityChange.ProbabilityPositive)
	require.Equal(t, 1.0, s.VolatilityChange.ProbabilityNegative)

	require.InDelta(t, 200, s.MeanPercent, 1e-4)
	require.InDelta(t, -50, s.VolatilityPercent, 1e-4)
}

func TestSummarizeParameterChangesTwoBoundaries(t *testing.T) {
	flat := func(v float64) [][]float64 { return [][]float64{{v, v, v, v}} }
	tr := makeTrace(TwoChangepoint, 50, map[string][][]float64{
		"tau1":   flat(15),
		"tau2":   flat(35),
		"mu1":    flat(0.01),
		"mu2":    flat(0.02),
		"mu3":    flat(-0.01),
		"sigma1": flat(0.01),
		"sigma2": flat(0.03),
		"sigma3": flat(0.02),
	}, []string{"tau1", "tau2", "mu1", "mu2", "mu3", "sigma1", "sigma2", "sigma3"}, 0)

	sum, err := SummarizeParameterChanges(tr)
	require.NoError(t, err)
	require.Len(t, sum.Shifts, 2)
	require.InDelta(t, 0.01, sum.Shifts[0].MeanChange.Mean, 1e-12)
	require.InDelta(t, -0.03, sum.Shifts[1].MeanChange.Mean, 1e-12)
	require.InDelta(t, 0.02, sum.Shifts[0].VolatilityChange.Mean, 1e-12)
	require.InDelta(t, -0.01, sum.Shifts[1].VolatilityChange.Mean, 1e-12)
}

func TestChangeStatProbabilitiesWithZeroDeltas(t *testing.T) {
	pre := []float64{0, 0, 0, 0}
	post := []float64{1, -1, 0, 2}
	cs := changeStat(pre, post)
	require.Equal(t, 0.5, cs.ProbabilityPositive)
	require.Equal(t, 0.25, cs.ProbabilityNegative)
	require.LessOrEqual(t, cs.ProbabilityPositive+cs.ProbabilityNegative, 1.0)
}

func TestHDINarrowestWindow(t *testing.T) {
	// 96 clustered values plus 4 far outliers; the 95% interval must hug the
	// cluster.
	samples := make([]float64, 0, 100)
	for i := 0; i < 96; i++ {
		samples = append(samples, float64(i))
	}
	samples = append(samples, 1000, 2000, 3000, 4000)

	lo, hi := HDI(samples, 0.95)
	require.Equal(t, 0.0, lo)
	require.Equal(t, 95.0, hi)
}

func TestHDIEdgeCases(t *testing.T) {
	lo, hi := HDI(nil, 0.95)
	require.True(t, math.IsNaN(lo))
	require.True(t, math.IsNaN(hi))

	lo, hi = HDI([]float64{3, 1, 2}, 1.0)
	require.Equal(t, 1.0, lo)
	require.Equal(t, 3.0, hi)

	lo, hi = HDI([]float64{7}, 0.95)
	require.Equal(t, 7.0, lo)
	require.Equal(t, 7.0, hi)
}
