package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"OilScope/internal/bayes"
	"OilScope/internal/domain/models"
)

type fakePriceStore struct {
	points []models.PricePoint
	err    error
}

func (f *fakePriceStore) Load(context.Context) ([]models.PricePoint, error) {
	return f.points, f.err
}

func (f *fakePriceStore) Query(_ context.Context, from, to time.Time) ([]models.PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.PricePoint, 0, len(f.points))
	for _, p := range f.points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeEventStore struct {
	events []models.Event
}

func (f *fakeEventStore) Load(context.Context) ([]models.Event, error) {
	return f.events, nil
}

type fakePublisher struct {
	docs []*models.ResultsDocument
}

func (f *fakePublisher) PublishResults(_ context.Context, doc *models.ResultsDocument) error {
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	runs         []string
	divergences  []int
	changepoints []int
	errs         []string
}

func (f *fakeMetrics) RecordAnalysisRun(variant string, _ float64) { f.runs = append(f.runs, variant) }
func (f *fakeMetrics) RecordDivergences(_ string, n int)           { f.divergences = append(f.divergences, n) }
func (f *fakeMetrics) RecordConvergence(string, bool)              {}
func (f *fakeMetrics) RecordChangepointIndex(_ string, idx int) {
	f.changepoints = append(f.changepoints, idx)
}
func (f *fakeMetrics) RecordError(kind string) { f.errs = append(f.errs, kind) }
func (f *fakeMetrics) RecordCacheHit(bool)     {}

// brokenPrices builds a daily price path whose log returns switch from a calm
// to a volatile regime at return index 100.
func brokenPrices(start time.Time) []models.PricePoint {
	rng := rand.New(rand.NewSource(99))
	price := 50.0
	out := []models.PricePoint{{Date: start, Price: price}}
	for i := 0; i < 150; i++ {
		sd := 0.01
		if i >= 100 {
			sd = 0.05
		}
		price *= math.Exp(sd * rng.NormFloat64())
		out = append(out, models.PricePoint{Date: start.AddDate(0, 0, i+1), Price: price})
	}
	return out
}

func newTestUseCase(t *testing.T) (*AnalysisUseCase, *fakePublisher, *fakeMetrics) {
	t.Helper()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := &fakePriceStore{points: brokenPrices(start)}
	evs := &fakeEventStore{events: []models.Event{
		{Date: start.AddDate(0, 0, 95), Title: "Supply Disruption", Type: "Supply Shock"},
		{Date: start.AddDate(0, 0, 400), Title: "Far Away Event", Type: "Policy"},
	}}
	pub := &fakePublisher{}
	m := &fakeMetrics{}
	return NewAnalysisUseCase(prices, evs, pub, m), pub, m
}

func testRunRequest() models.RunAnalysisRequest {
	return models.RunAnalysisRequest{
		Variant:      "single",
		Draws:        200,
		Tune:         100,
		Chains:       2,
		TargetAccept: 0.9,
		Seed:         7,
		WindowDays:   90,
	}
}

func TestSummaryBeforeRunReturnsErrNoTrace(t *testing.T) {
	uc, _, _ := newTestUseCase(t)

	_, err := uc.Summary(bayes.SingleChangepoint)
	require.ErrorIs(t, err, ErrNoTrace)
	_, err = uc.Changepoint(bayes.SingleChangepoint)
	require.ErrorIs(t, err, ErrNoTrace)
	_, err = uc.Convergence(bayes.SingleChangepoint)
	require.ErrorIs(t, err, ErrNoTrace)
	_, err = uc.ParameterChanges(bayes.SingleChangepoint)
	require.ErrorIs(t, err, ErrNoTrace)
	_, err = uc.Correlation(bayes.SingleChangepoint)
	require.ErrorIs(t, err, ErrNoTrace)
	_, err = uc.InsightsReport(bayes.SingleChangepoint)
	require.ErrorIs(t, err, ErrNoTrace)
}

func TestRunLifecycle(t *testing.T) {
	uc, pub, m := newTestUseCase(t)
	ctx := context.Background()

	res, err := uc.Run(ctx, testRunRequest())
	require.NoError(t, err)
	require.Equal(t, bayes.SingleChangepoint, res.Variant)
	require.NotNil(t, res.Convergence)
	require.NotNil(t, res.Changepoint)
	require.NotNil(t, res.ParameterChanges)

	// The detected break sits near return index 100.
	bp := res.Changepoint.Primary()
	require.InDelta(t, 100, bp.MeanIndex, 8)

	// Volatility rose across the break.
	shift := res.ParameterChanges.Primary()
	require.Greater(t, shift.VolatilityChange.Mean, 0.0)
	require.Greater(t, shift.VolatilityChange.ProbabilityPositive, 0.9)

	// The nearby event is picked up by the correlator.
	require.NotNil(t, res.Correlation.ClosestEvent)
	require.Equal(t, "Supply Disruption", res.Correlation.ClosestEvent.Title)

	// Cached accessors agree with the run result.
	sum, err := uc.Summary(bayes.SingleChangepoint)
	require.NoError(t, err)
	require.Equal(t, res.Changepoint, sum.Changepoint)

	// Metrics and publication happened exactly once.
	require.Equal(t, []string{"single"}, m.runs)
	require.Len(t, pub.docs, 1)
	require.Equal(t, "single_changepoint", pub.docs[0].Model)
}

func TestRunTwoChangepointCorrelations(t *testing.T) {
	uc, _, _ := newTestUseCase(t)
	ctx := context.Background()

	req := testRunRequest()
	req.Variant = "two"
	res, err := uc.Run(ctx, req)
	require.NoError(t, err)

	// Both breakpoints get their own correlation entry.
	require.Len(t, res.Changepoint.Breakpoints, 2)
	require.Len(t, res.BreakpointCorrelations.ChangePoints, 2)
	require.Equal(t, 1, res.BreakpointCorrelations.ChangePoints[0].ChangePoint)
	require.Equal(t, 2, res.BreakpointCorrelations.ChangePoints[1].ChangePoint)
	for i, entry := range res.BreakpointCorrelations.ChangePoints {
		require.Equal(t, res.Changepoint.Breakpoints[i].MeanDate, entry.Date)
	}

	sum, err := uc.Summary(bayes.TwoChangepoint)
	require.NoError(t, err)
	require.Equal(t, res.BreakpointCorrelations, sum.BreakpointCorrelations)
}

func TestResultsDocumentShape(t *testing.T) {
	uc, _, _ := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.Run(ctx, testRunRequest())
	require.NoError(t, err)

	doc, err := uc.ResultsDocument(bayes.SingleChangepoint)
	require.NoError(t, err)
	require.Equal(t, "single_changepoint", doc.Model)
	require.False(t, doc.GeneratedAt.IsZero())

	for _, raw := range []string{doc.ChangePoint.MeanDate, doc.ChangePoint.HDI95Dates[0], doc.ChangePoint.HDI95Dates[1]} {
		_, err := time.Parse(models.DocumentDateLayout, raw)
		require.NoError(t, err, "date %q", raw)
	}
	require.Greater(t, doc.ParameterChanges.VolatilityChange.ProbabilityIncrease, 0.9)
}

func TestRunReplacesCachedResults(t *testing.T) {
	uc, pub, _ := newTestUseCase(t)
	ctx := context.Background()

	first, err := uc.Run(ctx, testRunRequest())
	require.NoError(t, err)

	req := testRunRequest()
	req.Seed = 1234
	second, err := uc.Run(ctx, req)
	require.NoError(t, err)

	cached, err := uc.Changepoint(bayes.SingleChangepoint)
	require.NoError(t, err)
	require.Same(t, second.Changepoint, cached)
	require.NotSame(t, first.Changepoint, cached)
	require.Len(t, pub.docs, 2)
}

func TestRunRejectsUnknownVariant(t *testing.T) {
	uc, _, m := newTestUseCase(t)
	req := testRunRequest()
	req.Variant = "three"

	_, err := uc.Run(context.Background(), req)
	require.Error(t, err)
	var berr *bayes.ModelBuildError
	require.True(t, errors.As(err, &berr))
	require.Equal(t, []string{"model_build"}, m.errs)
}

func TestVolatilityWindowValidation(t *testing.T) {
	uc, _, _ := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.Volatility(ctx, 1)
	require.Error(t, err)
	_, err = uc.Volatility(ctx, 10_000)
	require.Error(t, err)

	pts, err := uc.Volatility(ctx, 30)
	require.NoError(t, err)
	// 150 returns, 30-day window: first full window ends at position 30.
	require.Len(t, pts, 121)
}

func TestEventImpactLookup(t *testing.T) {
	uc, _, _ := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.EventImpact(ctx, "No Such Event", 30)
	require.Error(t, err)

	imp, err := uc.EventImpact(ctx, "Supply Disruption", 30)
	require.NoError(t, err)
	require.NotNil(t, imp)
	require.Equal(t, "Supply Disruption", imp.EventTitle)
	require.Equal(t, 30, imp.WindowDays)

	// The far event has no price data on its other side.
	imp, err = uc.EventImpact(ctx, "Far Away Event", 30)
	require.NoError(t, err)
	require.Nil(t, imp)
}

func TestPricesAndEventsAccessors(t *testing.T) {
	uc, _, _ := newTestUseCase(t)
	ctx := context.Background()

	all, err := uc.Prices(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 151)

	from := time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 1, 19, 0, 0, 0, 0, time.UTC)
	windowed, err := uc.Prices(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, windowed, 10)

	evs, err := uc.Events(ctx)
	require.NoError(t, err)
	require.Len(t, evs, 2)
}

func TestReturnsAccessorWindow(t *testing.T) {
	uc, _, _ := newTestUseCase(t)
	ctx := context.Background()

	all, err := uc.Returns(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 150)
	require.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), all[0].Date)

	from := time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 1, 19, 0, 0, 0, 0, time.UTC)
	windowed, err := uc.Returns(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, windowed, 10)
	require.Equal(t, from, windowed[0].Date)
	require.Equal(t, to, windowed[len(windowed)-1].Date)
}

func TestInsightsReportSections(t *testing.T) {
	uc, _, _ := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.Run(ctx, testRunRequest())
	require.NoError(t, err)

	report, err := uc.InsightsReport(bayes.SingleChangepoint)
	require.NoError(t, err)

	for _, want := range []string{
		"# Bayesian Change Point Analysis Insights",
		"## Model: single_changepoint",
		"### 1. Detected Change Point",
		"### 2. Parameter Changes Between Regimes",
		"### 3. Event Correlations",
		"### 4. Investment Implications",
		"### 5. Analysis Limitations",
		"Supply Disruption",
		"likelihood of causation",
	} {
		require.True(t, strings.Contains(report, want), "missing %q", want)
	}
	require.Contains(t, report, "**Volatility increased** after the change point")
}
