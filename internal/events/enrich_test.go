package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"OilScope/internal/domain/models"
)

func TestEnrichAppliesTypeProfiles(t *testing.T) {
	out := Enrich([]models.Event{
		{Title: "Gulf War", Type: "Conflict", RegionCountry: "Middle East/Iraq"},
		{Title: "COVID-19 Pandemic", Type: "Pandemic/Demand Shock", RegionCountry: "Global"},
		{Title: "Mystery", Type: "Unheard Of", RegionCountry: "Global"},
	})
	require.Len(t, out, 3)

	require.Equal(t, "positive", out[0].ExpectedDirection)
	require.Equal(t, 60, out[0].ExpectedDurationDays)
	require.Equal(t, "high", out[0].ExpectedMagnitude)

	require.Equal(t, "negative", out[1].ExpectedDirection)
	require.Equal(t, 180, out[1].ExpectedDurationDays)

	// Unknown types fall back to the neutral profile.
	require.Equal(t, "neutral", out[2].ExpectedDirection)
	require.Equal(t, 30, out[2].ExpectedDurationDays)
	require.Equal(t, "low", out[2].ExpectedMagnitude)
}

func TestEnrichKeepsExistingFields(t *testing.T) {
	out := Enrich([]models.Event{{
		Title:                "Custom",
		Type:                 "Conflict",
		ExpectedDirection:    "mixed",
		ExpectedDurationDays: 5,
		ExpectedMagnitude:    "medium",
		RegionCode:           "XX",
	}})
	require.Equal(t, "mixed", out[0].ExpectedDirection)
	require.Equal(t, 5, out[0].ExpectedDurationDays)
	require.Equal(t, "medium", out[0].ExpectedMagnitude)
	require.Equal(t, "XX", out[0].RegionCode)
}

func TestEnrichRegionAndFlags(t *testing.T) {
	out := Enrich([]models.Event{
		{Title: "OPEC No-Cut Decision", Type: "Policy", RegionCountry: "Global/OPEC"},
		{Title: "Shale Boom", Type: "Supply Shift", RegionCountry: "U.S."},
		{Title: "Abqaiq Attack", Type: "Geopolitical", RegionCountry: "Saudi Arabia/Abqaiq"},
	})

	require.Equal(t, "Global", out[0].RegionCode)
	require.True(t, out[0].OPECRelated)
	require.False(t, out[0].MiddleEast)

	require.Equal(t, "U.S.", out[1].RegionCode)
	require.True(t, out[1].USRelated)
	require.False(t, out[1].OPECRelated)

	require.True(t, out[2].MiddleEast)
	require.Equal(t, "Saudi Arabia", out[2].RegionCode)
}
