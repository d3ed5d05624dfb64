package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPriceStoreLoadParsesAndSorts(t *testing.T) {
	path := writeCSV(t, "prices.csv", `Date,Price
22-May-87,18.45
20-May-87,18.63
not-a-date,99.99
21-May-87,18.45
`)
	s := NewCSVPriceStore(path)
	pts, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, pts, 3)

	require.Equal(t, time.Date(1987, 5, 20, 0, 0, 0, 0, time.UTC), pts[0].Date)
	require.Equal(t, 18.63, pts[0].Price)
	require.Equal(t, time.Date(1987, 5, 22, 0, 0, 0, 0, time.UTC), pts[2].Date)

	for i := 1; i < len(pts); i++ {
		require.True(t, pts[i-1].Date.Before(pts[i].Date), "not sorted at %d", i)
	}
}

func TestPriceStoreInterpolatesGaps(t *testing.T) {
	path := writeCSV(t, "prices.csv", `Date,Price
1-Jun-20,10
2-Jun-20,
3-Jun-20,
4-Jun-20,16
5-Jun-20,
`)
	s := NewCSVPriceStore(path)
	pts, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, pts, 5)

	require.InDelta(t, 12, pts[1].Price, 1e-12)
	require.InDelta(t, 14, pts[2].Price, 1e-12)
	// Trailing gap carries the last valid price forward.
	require.InDelta(t, 16, pts[4].Price, 1e-12)
}

func TestPriceStoreDropsLeadingGap(t *testing.T) {
	path := writeCSV(t, "prices.csv", `Date,Price
1-Jun-20,
2-Jun-20,
3-Jun-20,12
4-Jun-20,13
`)
	s := NewCSVPriceStore(path)
	pts, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, pts, 2)
	require.Equal(t, time.Date(2020, 6, 3, 0, 0, 0, 0, time.UTC), pts[0].Date)
}

func TestPriceStoreQueryWindow(t *testing.T) {
	path := writeCSV(t, "prices.csv", `Date,Price
1-Jun-20,10
2-Jun-20,11
3-Jun-20,12
4-Jun-20,13
`)
	s := NewCSVPriceStore(path)

	from := time.Date(2020, 6, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 6, 3, 0, 0, 0, 0, time.UTC)
	pts, err := s.Query(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, pts, 2)
	require.Equal(t, 11.0, pts[0].Price)
	require.Equal(t, 12.0, pts[1].Price)

	// Zero bounds leave that side open.
	pts, err = s.Query(context.Background(), time.Time{}, to)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	pts, err = s.Query(context.Background(), from, time.Time{})
	require.NoError(t, err)
	require.Len(t, pts, 3)
}

func TestPriceStoreRejectsBadInput(t *testing.T) {
	s := NewCSVPriceStore(filepath.Join(t.TempDir(), "missing.csv"))
	_, err := s.Load(context.Background())
	require.Error(t, err)

	s = NewCSVPriceStore(writeCSV(t, "header.csv", "Date,Price\n"))
	_, err = s.Load(context.Background())
	require.Error(t, err)

	s = NewCSVPriceStore(writeCSV(t, "cols.csv", "Day,Close\n1-Jun-20,10\n"))
	_, err = s.Load(context.Background())
	require.Error(t, err)
}
