package usecase

import (
	"fmt"
	"strings"

	"OilScope/internal/bayes"
	"OilScope/internal/domain/models"
)

// InsightsReport renders a variant's cached results as a markdown report for
// analysts. The section structure is stable; dashboards split on the headers.
func (uc *AnalysisUseCase) InsightsReport(variant bayes.Variant) (string, error) {
	r, err := uc.run(variant)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("# Bayesian Change Point Analysis Insights")
	line("## Model: %s", r.changepoint.Model)
	line("")
	line("### 1. Detected Change Point")
	for _, bp := range r.changepoint.Breakpoints {
		line("- **Date**: %s", bp.MeanDate.Format(models.DocumentDateLayout))
		line("- **95%% HDI**: %s to %s",
			bp.HDI95Dates[0].Format(models.DocumentDateLayout),
			bp.HDI95Dates[1].Format(models.DocumentDateLayout))
		line("- **Posterior Probability**: %.2f%%", bp.Probability*100)
	}

	line("")
	line("### 2. Parameter Changes Between Regimes")
	for _, shift := range r.params.Shifts {
		mean, vol := shift.MeanChange, shift.VolatilityChange
		line("#### Mean Returns (regime %d to %d):", shift.FromRegime, shift.ToRegime)
		line("- Change: %.4f (95%% HDI: [%.4f, %.4f])", mean.Mean, mean.HDI95[0], mean.HDI95[1])
		line("- Probability of increase: %.2f%%", mean.ProbabilityPositive*100)
		line("- Probability of decrease: %.2f%%", mean.ProbabilityNegative*100)
		line("")
		line("#### Volatility (regime %d to %d):", shift.FromRegime, shift.ToRegime)
		line("- Change: %.4f (95%% HDI: [%.4f, %.4f])", vol.Mean, vol.HDI95[0], vol.HDI95[1])
		line("- Probability of increase: %.2f%%", vol.ProbabilityPositive*100)
		line("- Probability of decrease: %.2f%%", vol.ProbabilityNegative*100)
	}

	line("")
	line("### 3. Event Correlations")
	corr := r.correlation
	if len(corr.NearbyEvents) > 0 {
		line("**Events within ±%d days of change point:**", r.windowDays)
		limit := len(corr.NearbyEvents)
		if limit > 3 {
			limit = 3
		}
		for _, ev := range corr.NearbyEvents[:limit] {
			days := ev.DaysFromChange
			if days < 0 {
				days = -days
			}
			line("- **%s** (%s) - %d days from change point",
				ev.Title, ev.Date.Format(models.DocumentDateLayout), days)
		}
		if corr.ClosestEvent != nil {
			days := corr.ClosestEvent.DaysFromChange
			if days < 0 {
				days = -days
			}
			line("")
			line("**Closest Event:** %s (%d days)", corr.ClosestEvent.Title, days)
			line("**Assessment**: %s likelihood of causation", strings.ToUpper(corr.CausationLikelihood))
		}
	} else {
		line("No events within the correlation window.")
	}

	line("")
	line("### 4. Investment Implications")
	primary := r.params.Primary()
	if primary.MeanChange.Mean > 0 {
		line("- **Returns increased** after the change point")
		line("  - Consider strategies that benefit from higher average returns")
	} else {
		line("- **Returns decreased** after the change point")
		line("  - Consider defensive strategies or hedging")
	}
	if primary.VolatilityChange.Mean > 0 {
		line("- **Volatility increased** after the change point")
		line("  - Increase risk management measures")
		line("  - Consider options strategies for volatility")
	} else {
		line("- **Volatility decreased** after the change point")
		line("  - Potentially lower risk environment")
		line("  - May allow for more aggressive positioning")
	}

	line("")
	line("### 5. Analysis Limitations")
	if r.changepoint.Model == "single_changepoint" {
		line("- **Single change point**: Assumes only one structural break")
	} else {
		line("- **Two change points**: Assumes exactly two structural breaks")
	}
	line("- **Correlation is not causation**: Events may correlate with but not cause changes")
	line("- **Model simplicity**: Normal distribution may not capture all features")
	line("- **Data frequency**: Daily data may miss intraday dynamics")

	return b.String(), nil
}
