package models

import "time"

// PricePoint is one daily closing price observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// Series is an ordered log-return series paired 1:1 with calendar dates.
// Index i of Values corresponds to index i of Dates. A Series is treated as
// immutable once loaded.
type Series struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Values) }

// Window returns the subrange of points with dates in [from, to], keeping
// the original ordering. Zero bounds are open.
func (s Series) Window(from, to time.Time) Series {
	lo, hi := 0, len(s.Dates)
	for lo < hi && !from.IsZero() && s.Dates[lo].Before(from) {
		lo++
	}
	for hi > lo && !to.IsZero() && s.Dates[hi-1].After(to) {
		hi--
	}
	return Series{Dates: s.Dates[lo:hi], Values: s.Values[lo:hi]}
}
