package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"OilScope/internal/bayes"
	"OilScope/internal/domain/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func posteriorAt(mean time.Time, lo, hi time.Time) *bayes.ChangepointPosterior {
	return &bayes.ChangepointPosterior{
		Model: "single_changepoint",
		Breakpoints: []bayes.BreakpointSummary{{
			Name:       "tau",
			MeanDate:   mean,
			HDI95Dates: [2]time.Time{lo, hi},
		}},
	}
}

func TestCorrelateRanksEventsByDistance(t *testing.T) {
	cp := posteriorAt(day(2008, 7, 18), day(2008, 6, 20), day(2008, 8, 20))
	evs := []models.Event{
		{Date: day(2008, 9, 15), Title: "Financial Crisis", Type: "Financial Crisis"},
		{Date: day(2008, 7, 1), Title: "Oil Price Peak", Type: "Demand Shock"},
	}

	out := Correlate(cp, evs, 90)

	require.Equal(t, day(2008, 7, 18), out.ChangeDate)
	require.Len(t, out.NearbyEvents, 2)
	require.Equal(t, 2, out.EventCountWithinWindow)

	// 17 days beats 59 days regardless of input order.
	require.Equal(t, "Oil Price Peak", out.NearbyEvents[0].Title)
	require.Equal(t, -17, out.NearbyEvents[0].DaysFromChange)
	require.Equal(t, "Financial Crisis", out.NearbyEvents[1].Title)
	require.Equal(t, 59, out.NearbyEvents[1].DaysFromChange)

	require.NotNil(t, out.ClosestEvent)
	require.Equal(t, "Oil Price Peak", out.ClosestEvent.Title)
	require.Equal(t, models.CausationModerate, out.CausationLikelihood)

	// Only the July event falls inside the HDI window.
	require.Len(t, out.EventsInHDI, 1)
	require.Equal(t, "Oil Price Peak", out.EventsInHDI[0].Title)
	require.InDelta(t, 0.4, out.ProbabilityEventCausedChange, 1e-12)
}

func TestCorrelateWindowIsInclusive(t *testing.T) {
	cp := posteriorAt(day(2020, 3, 6), day(2020, 3, 1), day(2020, 3, 10))
	evs := []models.Event{
		{Date: day(2020, 3, 16), Title: "At Edge"},
		{Date: day(2020, 3, 17), Title: "Past Edge"},
	}

	out := Correlate(cp, evs, 10)
	require.Len(t, out.NearbyEvents, 1)
	require.Equal(t, "At Edge", out.NearbyEvents[0].Title)
	require.Equal(t, 10, out.NearbyEvents[0].DaysFromChange)
}

func TestCorrelateNoMatchingEvents(t *testing.T) {
	cp := posteriorAt(day(2014, 11, 27), day(2014, 11, 1), day(2014, 12, 20))
	evs := []models.Event{
		{Date: day(2016, 1, 1), Title: "Far Away"},
	}

	out := Correlate(cp, evs, 30)
	require.Empty(t, out.NearbyEvents)
	require.Nil(t, out.ClosestEvent)
	require.Empty(t, out.EventsInHDI)
	require.Equal(t, 0, out.EventCountWithinWindow)
	require.Empty(t, out.CausationLikelihood)
	require.InDelta(t, 0.1, out.ProbabilityEventCausedChange, 1e-12)
}

func TestCorrelateProbabilityIsCapped(t *testing.T) {
	cp := posteriorAt(day(2022, 2, 24), day(2022, 2, 1), day(2022, 3, 20))
	var evs []models.Event
	for i := 0; i < 5; i++ {
		evs = append(evs, models.Event{Date: day(2022, 2, 20+i), Title: "e"})
	}

	out := Correlate(cp, evs, 30)
	require.Len(t, out.EventsInHDI, 5)
	require.Equal(t, 1.0, out.ProbabilityEventCausedChange)
}

func TestCausationLabelLadder(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{0, models.CausationHigh},
		{7, models.CausationHigh},
		{-7, models.CausationHigh},
		{8, models.CausationModerate},
		{30, models.CausationModerate},
		{-30, models.CausationModerate},
		{31, models.CausationLow},
		{365, models.CausationLow},
	}
	for _, c := range cases {
		require.Equal(t, c.want, causationLabel(c.days), "days=%d", c.days)
	}
}

func TestCorrelateEmptyPosterior(t *testing.T) {
	evs := []models.Event{{Date: day(2020, 3, 6), Title: "Orphan"}}

	out := Correlate(&bayes.ChangepointPosterior{}, evs, 30)
	require.Equal(t, models.EventCorrelation{}, out)
}

func TestCorrelateAllCoversEveryBreakpoint(t *testing.T) {
	cp := &bayes.ChangepointPosterior{
		Model: "two_changepoints",
		Breakpoints: []bayes.BreakpointSummary{
			{Name: "tau1", MeanDate: day(2008, 7, 18)},
			{Name: "tau2", MeanDate: day(2014, 11, 27)},
		},
	}
	evs := []models.Event{
		{Date: day(2008, 7, 1), Title: "Oil Price Peak"},
		{Date: day(2014, 11, 27), Title: "OPEC No-Cut Decision"},
	}

	out := CorrelateAll(cp, evs, 90)
	require.Len(t, out.ChangePoints, 2)

	require.Equal(t, 1, out.ChangePoints[0].ChangePoint)
	require.Equal(t, "Oil Price Peak", out.ChangePoints[0].ClosestEvent.Title)

	require.Equal(t, 2, out.ChangePoints[1].ChangePoint)
	require.Equal(t, "OPEC No-Cut Decision", out.ChangePoints[1].ClosestEvent.Title)
	require.Equal(t, 0, out.ChangePoints[1].ClosestEvent.DaysFromChange)
}
