package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventStoreLoadParsesAndEnriches(t *testing.T) {
	path := writeCSV(t, "events.csv", `Date,Event_Title,Event_Type,Short_Description,Region_Country
2022-02-24,Russia Invades Ukraine,Conflict,Full-scale invasion begins,Europe/Russia
1990-08-02,Gulf War Begins,Conflict,Iraq invades Kuwait,Middle East/Iraq
2014-11-27,OPEC No-Cut Decision,Policy,OPEC maintains production,Global/OPEC
garbage-date,Broken Row,Policy,,Global
`)
	s := NewCSVEventStore(path)
	evs, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, evs, 3)

	// Sorted by date.
	require.Equal(t, "Gulf War Begins", evs[0].Title)
	require.Equal(t, time.Date(1990, 8, 2, 0, 0, 0, 0, time.UTC), evs[0].Date)
	require.Equal(t, "Russia Invades Ukraine", evs[2].Title)

	// Enrichment metadata derived from type and region.
	require.Equal(t, "positive", evs[0].ExpectedDirection)
	require.Equal(t, "high", evs[0].ExpectedMagnitude)
	require.Equal(t, "Middle East", evs[0].RegionCode)
	require.True(t, evs[0].MiddleEast)
	require.True(t, evs[1].OPECRelated)
	require.Equal(t, "mixed", evs[1].ExpectedDirection)
}

func TestEventStoreDateLayouts(t *testing.T) {
	path := writeCSV(t, "events.csv", `Date,Event_Title,Event_Type,Short_Description,Region_Country
2020-03-06,ISO Layout,Policy,,Global
6-Mar-20,Brent Layout,Policy,,Global
03/06/2020,US Layout,Policy,,Global
`)
	s := NewCSVEventStore(path)
	evs, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, evs, 3)

	want := time.Date(2020, 3, 6, 0, 0, 0, 0, time.UTC)
	for _, ev := range evs {
		require.Equal(t, want, ev.Date, "event %s", ev.Title)
	}
}

func TestEventStoreMissingDateColumn(t *testing.T) {
	path := writeCSV(t, "events.csv", `When,Event_Title
2020-03-06,Whatever
`)
	s := NewCSVEventStore(path)
	_, err := s.Load(context.Background())
	require.Error(t, err)
}

func TestEventStoreMemoizesLoad(t *testing.T) {
	path := writeCSV(t, "events.csv", `Date,Event_Title,Event_Type,Short_Description,Region_Country
2020-03-06,Only Event,Policy,,Global
`)
	s := NewCSVEventStore(path)
	first, err := s.Load(context.Background())
	require.NoError(t, err)
	second, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, &first[0], &second[0], "expected the memoized slice")
}
