package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"OilScope/internal/domain/models"
	"OilScope/internal/events"
	applogger "OilScope/pkg/logger"
)

// CSVEventStore loads the curated market event list from a CSV file. The
// minimal schema is Date, Event_Title, Event_Type, Short_Description and
// Region_Country; enrichment metadata is derived for rows that lack it.
type CSVEventStore struct {
	path string
	l    *applogger.Logger
	evs  []models.Event
}

func NewCSVEventStore(path string) *CSVEventStore {
	return &CSVEventStore{path: path}
}

// SetLogger injects a structured logger.
func (s *CSVEventStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVEventStore) Load(ctx context.Context) ([]models.Event, error) {
	if s.evs != nil {
		return s.evs, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open events csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read events csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("events csv %s: no data rows", s.path)
	}

	cols := map[string]int{}
	for i, h := range records[0] {
		cols[strings.TrimSpace(h)] = i
	}
	if _, ok := cols["Date"]; !ok {
		return nil, fmt.Errorf("events csv: missing Date column in header %v", records[0])
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	evs := make([]models.Event, 0, len(records)-1)
	dropped := 0
	for _, rec := range records[1:] {
		date, err := parseEventDate(field(rec, "Date"))
		if err != nil {
			dropped++
			continue
		}
		evs = append(evs, models.Event{
			Date:          date,
			Title:         field(rec, "Event_Title"),
			Type:          field(rec, "Event_Type"),
			Description:   field(rec, "Short_Description"),
			RegionCountry: field(rec, "Region_Country"),
		})
	}

	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Date.Before(evs[j].Date) })
	evs = events.Enrich(evs)

	if s.l != nil {
		s.l.Info("events csv loaded",
			applogger.String("path", s.path),
			applogger.Int("rows", len(evs)),
			applogger.Int("dropped", dropped),
		)
	}
	s.evs = evs
	return s.evs, nil
}

func parseEventDate(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2-Jan-06", "01/02/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable event date %q", raw)
}
