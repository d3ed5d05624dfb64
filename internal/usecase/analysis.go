package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"OilScope/internal/bayes"
	"OilScope/internal/domain/models"
	domrepo "OilScope/internal/domain/repository"
	"OilScope/internal/events"
	"OilScope/internal/services/stats"
	applogger "OilScope/pkg/logger"
)

// ErrNoTrace is returned when a summary is requested for a model variant that
// has not been sampled yet.
var ErrNoTrace = errors.New("no sampled trace for variant")

// AnalysisUseCase orchestrates the full change-point pipeline: price loading,
// model construction, sampling, diagnostics, posterior summaries and event
// correlation. Completed runs are cached per variant; re-running a variant
// replaces its cached trace and every result derived from it.
type AnalysisUseCase struct {
	prices    domrepo.PriceStore
	eventRepo domrepo.EventStore
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	l         *applogger.Logger

	mu        sync.RWMutex
	returns   models.Series
	pricePts  []models.PricePoint
	eventList []models.Event
	runs      map[bayes.Variant]*analysisRun
}

// analysisRun holds one variant's trace and everything derived from it.
type analysisRun struct {
	trace        *bayes.Trace
	report       *bayes.ConvergenceReport
	changepoint  *bayes.ChangepointPosterior
	params       *bayes.ParameterChangeSummary
	correlation  models.EventCorrelation
	correlations models.MultiEventCorrelation
	windowDays   int
	completedAt  time.Time
}

func NewAnalysisUseCase(prices domrepo.PriceStore, eventRepo domrepo.EventStore, publisher domrepo.Publisher, metrics domrepo.Metrics) *AnalysisUseCase {
	return &AnalysisUseCase{
		prices:    prices,
		eventRepo: eventRepo,
		publisher: publisher,
		metrics:   metrics,
		runs:      make(map[bayes.Variant]*analysisRun),
	}
}

// SetLogger injects a structured logger.
func (uc *AnalysisUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// EnsureData loads prices and events once and derives the log-return series.
// Returns are aligned with dates[1:] of the price history.
func (uc *AnalysisUseCase) EnsureData(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.ensureDataLocked(ctx)
}

func (uc *AnalysisUseCase) ensureDataLocked(ctx context.Context) error {
	if uc.returns.Len() > 0 {
		return nil
	}
	pts, err := uc.prices.Load(ctx)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	evs, err := uc.eventRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	raw := make([]float64, len(pts))
	for i, p := range pts {
		raw[i] = p.Price
	}
	returns := stats.LogReturns(raw)
	if len(returns) == 0 {
		return errors.New("price history too short for returns")
	}
	dates := make([]time.Time, len(returns))
	for i := range returns {
		dates[i] = pts[i+1].Date
	}

	uc.pricePts = pts
	uc.eventList = evs
	uc.returns = models.Series{Dates: dates, Values: returns}

	if uc.l != nil {
		uc.l.Info("analysis data ready",
			applogger.Int("prices", len(pts)),
			applogger.Int("returns", len(returns)),
			applogger.Int("events", len(evs)),
		)
	}
	return nil
}

// RunResult is the composite outcome of one analysis run.
type RunResult struct {
	Variant          bayes.Variant                 `json:"variant"`
	Convergence      *bayes.ConvergenceReport      `json:"convergence"`
	Changepoint      *bayes.ChangepointPosterior   `json:"changepoint"`
	ParameterChanges *bayes.ParameterChangeSummary `json:"parameter_changes"`
	Correlation      models.EventCorrelation       `json:"event_correlation"`
	// BreakpointCorrelations holds one entry per sampled breakpoint, so
	// two-changepoint runs report both tau1 and tau2 matches.
	BreakpointCorrelations models.MultiEventCorrelation `json:"breakpoint_correlations"`
	Elapsed                time.Duration                `json:"elapsed_ns"`
}

// Run executes the full pipeline for one variant. Sampling options (progress
// callbacks) are forwarded to the sampler. On success the variant's cached
// results are replaced atomically and the results document is published.
func (uc *AnalysisUseCase) Run(ctx context.Context, req models.RunAnalysisRequest, opts ...bayes.SampleOption) (*RunResult, error) {
	uc.mu.Lock()
	if err := uc.ensureDataLocked(ctx); err != nil {
		uc.mu.Unlock()
		return nil, err
	}
	returns := uc.returns
	evs := uc.eventList
	uc.mu.Unlock()

	variant := bayes.Variant(req.Variant)
	model, err := bayes.Build(returns.Values, variant, bayes.DefaultPriors())
	if err != nil {
		uc.recordError("model_build")
		return nil, err
	}

	cfg := bayes.SampleConfig{
		Draws:        req.Draws,
		Tune:         req.Tune,
		Chains:       req.Chains,
		TargetAccept: req.TargetAccept,
		Seed:         req.Seed,
	}
	start := time.Now()
	trace, err := bayes.Sample(ctx, model, cfg, opts...)
	if err != nil {
		uc.recordError("sampling")
		return nil, err
	}

	report, err := bayes.Diagnose(trace)
	if err != nil {
		uc.recordError("diagnostics")
		return nil, err
	}
	cp, err := bayes.SummarizeChangepoint(trace, returns.Dates)
	if err != nil {
		uc.recordError("summary")
		return nil, err
	}
	params, err := bayes.SummarizeParameterChanges(trace)
	if err != nil {
		uc.recordError("summary")
		return nil, err
	}
	corr := events.Correlate(cp, evs, req.WindowDays)
	corrAll := events.CorrelateAll(cp, evs, req.WindowDays)

	run := &analysisRun{
		trace:        trace,
		report:       report,
		changepoint:  cp,
		params:       params,
		correlation:  corr,
		correlations: corrAll,
		windowDays:   req.WindowDays,
		completedAt:  time.Now(),
	}
	uc.mu.Lock()
	uc.runs[variant] = run
	uc.mu.Unlock()

	if uc.metrics != nil {
		uc.metrics.RecordAnalysisRun(string(variant), time.Since(start).Seconds())
		uc.metrics.RecordDivergences(string(variant), report.Divergences)
		uc.metrics.RecordConvergence(string(variant), report.Converged)
		uc.metrics.RecordChangepointIndex(string(variant), cp.Primary().MeanIndex)
	}
	if uc.l != nil {
		uc.l.Info("analysis run complete",
			applogger.String("variant", string(variant)),
			applogger.Bool("converged", report.Converged),
			applogger.Int("divergences", report.Divergences),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}

	if uc.publisher != nil {
		doc := buildResultsDocument(run)
		if err := uc.publisher.PublishResults(ctx, doc); err != nil && uc.l != nil {
			uc.l.Warn("results publish failed", applogger.Error(err))
		}
	}

	return &RunResult{
		Variant:                variant,
		Convergence:            report,
		Changepoint:            cp,
		ParameterChanges:       params,
		Correlation:            corr,
		BreakpointCorrelations: corrAll,
		Elapsed:                trace.Elapsed(),
	}, nil
}

func (uc *AnalysisUseCase) run(variant bayes.Variant) (*analysisRun, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	r, ok := uc.runs[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTrace, variant)
	}
	return r, nil
}

// Summary returns the full cached result for a variant.
func (uc *AnalysisUseCase) Summary(variant bayes.Variant) (*RunResult, error) {
	r, err := uc.run(variant)
	if err != nil {
		return nil, err
	}
	return &RunResult{
		Variant:                variant,
		Convergence:            r.report,
		Changepoint:            r.changepoint,
		ParameterChanges:       r.params,
		Correlation:            r.correlation,
		BreakpointCorrelations: r.correlations,
		Elapsed:                r.trace.Elapsed(),
	}, nil
}

// Changepoint returns the cached change-point posterior for a variant.
func (uc *AnalysisUseCase) Changepoint(variant bayes.Variant) (*bayes.ChangepointPosterior, error) {
	r, err := uc.run(variant)
	if err != nil {
		return nil, err
	}
	return r.changepoint, nil
}

// Convergence returns the cached convergence report for a variant.
func (uc *AnalysisUseCase) Convergence(variant bayes.Variant) (*bayes.ConvergenceReport, error) {
	r, err := uc.run(variant)
	if err != nil {
		return nil, err
	}
	return r.report, nil
}

// ParameterChanges returns the cached regime-shift summary for a variant.
func (uc *AnalysisUseCase) ParameterChanges(variant bayes.Variant) (*bayes.ParameterChangeSummary, error) {
	r, err := uc.run(variant)
	if err != nil {
		return nil, err
	}
	return r.params, nil
}

// Correlation returns the cached event correlation for a variant.
func (uc *AnalysisUseCase) Correlation(variant bayes.Variant) (models.EventCorrelation, error) {
	r, err := uc.run(variant)
	if err != nil {
		return models.EventCorrelation{}, err
	}
	return r.correlation, nil
}

// Prices returns the price history, optionally restricted to [from, to].
func (uc *AnalysisUseCase) Prices(ctx context.Context, from, to time.Time) ([]models.PricePoint, error) {
	if err := uc.EnsureData(ctx); err != nil {
		return nil, err
	}
	return uc.prices.Query(ctx, from, to)
}

// Returns exposes the daily log-return series, optionally bounded by date.
func (uc *AnalysisUseCase) Returns(ctx context.Context, from, to time.Time) ([]models.ReturnPoint, error) {
	if err := uc.EnsureData(ctx); err != nil {
		return nil, err
	}
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	w := uc.returns.Window(from, to)
	out := make([]models.ReturnPoint, w.Len())
	for i := range out {
		out[i] = models.ReturnPoint{Date: w.Dates[i], Return: w.Values[i]}
	}
	return out, nil
}

// Events returns the enriched event list.
func (uc *AnalysisUseCase) Events(ctx context.Context) ([]models.Event, error) {
	if err := uc.EnsureData(ctx); err != nil {
		return nil, err
	}
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.eventList, nil
}

// Volatility returns the rolling volatility of log returns for a window.
func (uc *AnalysisUseCase) Volatility(ctx context.Context, window int) ([]models.VolatilityPoint, error) {
	if err := uc.EnsureData(ctx); err != nil {
		return nil, err
	}
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if window < 2 || window > uc.returns.Len() {
		return nil, fmt.Errorf("volatility window %d out of range", window)
	}
	return stats.VolatilitySeries(uc.returns.Dates, uc.returns.Values, window), nil
}

// EventImpact compares average prices around the named event. A nil result
// with nil error means the window held too little data.
func (uc *AnalysisUseCase) EventImpact(ctx context.Context, title string, windowDays int) (*models.EventImpact, error) {
	if err := uc.EnsureData(ctx); err != nil {
		return nil, err
	}
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	for _, ev := range uc.eventList {
		if ev.Title == title {
			return stats.EventImpact(uc.pricePts, ev, windowDays), nil
		}
	}
	return nil, fmt.Errorf("unknown event %q", title)
}

// ResultsDocument maps a variant's cached results to the persisted document
// shape.
func (uc *AnalysisUseCase) ResultsDocument(variant bayes.Variant) (*models.ResultsDocument, error) {
	r, err := uc.run(variant)
	if err != nil {
		return nil, err
	}
	return buildResultsDocument(r), nil
}

func (uc *AnalysisUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}

func buildResultsDocument(r *analysisRun) *models.ResultsDocument {
	bp := r.changepoint.Primary()
	mean := r.params.Primary().MeanChange
	vol := r.params.Primary().VolatilityChange

	return &models.ResultsDocument{
		Model: r.changepoint.Model,
		ChangePoint: models.ChangePointResult{
			MeanDate: bp.MeanDate.Format(models.DocumentDateLayout),
			HDI95Dates: [2]string{
				bp.HDI95Dates[0].Format(models.DocumentDateLayout),
				bp.HDI95Dates[1].Format(models.DocumentDateLayout),
			},
			Probability: bp.Probability,
		},
		ParameterChanges: models.ParameterChangesResult{
			MeanChange: models.MeanChangeResult{
				Mean:                mean.Mean,
				Std:                 mean.Std,
				HDI95:               mean.HDI95,
				ProbabilityPositive: mean.ProbabilityPositive,
				ProbabilityNegative: mean.ProbabilityNegative,
			},
			VolatilityChange: models.VolatilityChangeResult{
				Mean:                vol.Mean,
				Std:                 vol.Std,
				HDI95:               vol.HDI95,
				ProbabilityIncrease: vol.ProbabilityPositive,
				ProbabilityDecrease: vol.ProbabilityNegative,
			},
		},
		Converged:   r.report.Converged,
		GeneratedAt: r.completedAt,
	}
}
