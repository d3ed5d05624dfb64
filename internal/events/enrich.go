package events

import (
	"strings"

	"OilScope/internal/domain/models"
)

// impactProfile captures the expected price impact of an event type.
type impactProfile struct {
	direction string
	duration  int
	magnitude string
}

var typeImpacts = map[string]impactProfile{
	"Conflict":                      {"positive", 60, "high"},
	"Economic Crisis":               {"negative", 90, "high"},
	"Policy":                        {"mixed", 30, "medium"},
	"Geopolitical":                  {"positive", 45, "medium"},
	"Financial Crisis":              {"negative", 120, "high"},
	"Weather/Production Disruption": {"positive", 30, "medium"},
	"Pandemic/Demand Shock":         {"negative", 180, "high"},
	"Sanctions/Geopolitical":        {"positive", 60, "medium"},
	"Supply Shock":                  {"mixed", 45, "high"},
	"Demand Shock":                  {"negative", 90, "high"},
	"Supply Shift":                  {"negative", 365, "medium"},
}

var defaultImpact = impactProfile{"neutral", 30, "low"}

var middleEastMarkers = []string{"Iraq", "Kuwait", "Saudi", "Libya", "Iran", "Abqaiq"}

// Enrich annotates events with expected-impact metadata derived from the
// event type and region. Fields already populated on the input are left
// untouched.
func Enrich(evs []models.Event) []models.Event {
	out := make([]models.Event, len(evs))
	for i, ev := range evs {
		profile, ok := typeImpacts[ev.Type]
		if !ok {
			profile = defaultImpact
		}
		if ev.ExpectedDirection == "" {
			ev.ExpectedDirection = profile.direction
		}
		if ev.ExpectedDurationDays == 0 {
			ev.ExpectedDurationDays = profile.duration
		}
		if ev.ExpectedMagnitude == "" {
			ev.ExpectedMagnitude = profile.magnitude
		}
		if ev.RegionCode == "" {
			ev.RegionCode = regionCode(ev.RegionCountry)
		}
		ev.OPECRelated = ev.OPECRelated || strings.Contains(ev.Title, "OPEC") || strings.Contains(ev.Description, "OPEC")
		ev.USRelated = ev.USRelated || strings.Contains(ev.Title, "U.S.") || strings.Contains(ev.RegionCountry, "U.S.")
		ev.MiddleEast = ev.MiddleEast || isMiddleEast(ev.RegionCountry)
		out[i] = ev
	}
	return out
}

func regionCode(regionCountry string) string {
	if i := strings.Index(regionCountry, "/"); i >= 0 {
		return regionCountry[:i]
	}
	return regionCountry
}

func isMiddleEast(regionCountry string) bool {
	for _, marker := range middleEastMarkers {
		if strings.Contains(regionCountry, marker) {
			return true
		}
	}
	return false
}
