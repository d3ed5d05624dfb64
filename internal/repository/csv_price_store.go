package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"OilScope/internal/domain/models"
	applogger "OilScope/pkg/logger"
	"OilScope/pkg/util"
)

// CSVPriceStore loads the Brent price history from a CSV file with Date and
// Price columns. The file is read once; rows with unparseable dates are
// dropped, rows are sorted by date, and missing prices are filled by linear
// interpolation.
type CSVPriceStore struct {
	path   string
	l      *applogger.Logger
	points []models.PricePoint
}

func NewCSVPriceStore(path string) *CSVPriceStore {
	return &CSVPriceStore{path: path}
}

// SetLogger injects a structured logger.
func (s *CSVPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVPriceStore) Load(ctx context.Context) ([]models.PricePoint, error) {
	if s.points != nil {
		return s.points, nil
	}
	start := time.Now()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open prices csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read prices csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("prices csv %s: no data rows", s.path)
	}

	dateCol, priceCol, err := priceColumns(records[0])
	if err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(records)-1)
	dropped := 0
	for _, rec := range records[1:] {
		if len(rec) <= dateCol || len(rec) <= priceCol {
			dropped++
			continue
		}
		date, ok := util.ParseBrentDate(strings.TrimSpace(rec[dateCol]))
		if !ok {
			dropped++
			continue
		}
		price := math.NaN()
		if raw := strings.TrimSpace(rec[priceCol]); raw != "" {
			if v, perr := strconv.ParseFloat(raw, 64); perr == nil {
				price = v
			}
		}
		points = append(points, models.PricePoint{Date: date, Price: price})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("prices csv %s: no parseable rows", s.path)
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	points = interpolatePrices(points)
	if len(points) == 0 {
		return nil, fmt.Errorf("prices csv %s: no valid prices", s.path)
	}

	if s.l != nil {
		s.l.Info("prices csv loaded",
			applogger.String("path", s.path),
			applogger.Int("rows", len(points)),
			applogger.Int("dropped", dropped),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	s.points = points
	return s.points, nil
}

func (s *CSVPriceStore) Query(ctx context.Context, from, to time.Time) ([]models.PricePoint, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PricePoint, 0, len(all))
	for _, p := range all {
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

func priceColumns(header []string) (dateCol, priceCol int, err error) {
	dateCol, priceCol = -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "Date":
			dateCol = i
		case "Price":
			priceCol = i
		}
	}
	if dateCol < 0 || priceCol < 0 {
		return 0, 0, fmt.Errorf("prices csv: missing Date or Price column in header %v", header)
	}
	return dateCol, priceCol, nil
}

// interpolatePrices fills NaN prices linearly between the nearest valid
// neighbours. Trailing gaps carry the last valid price forward; rows before
// the first valid price are dropped.
func interpolatePrices(points []models.PricePoint) []models.PricePoint {
	first := -1
	for i := range points {
		if !math.IsNaN(points[i].Price) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}
	points = points[first:]

	prev := 0
	for i := 1; i < len(points); i++ {
		if math.IsNaN(points[i].Price) {
			continue
		}
		if i-prev > 1 {
			step := (points[i].Price - points[prev].Price) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				points[j].Price = points[prev].Price + step*float64(j-prev)
			}
		}
		prev = i
	}
	for j := prev + 1; j < len(points); j++ {
		points[j].Price = points[prev].Price
	}
	return points
}
