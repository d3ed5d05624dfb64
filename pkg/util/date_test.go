package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestParseBrentDate(t *testing.T) {
    got, ok := ParseBrentDate("20-May-87")
    if !ok {
        t.Fatalf("expected ok")
    }
    want := time.Date(1987, 5, 20, 0, 0, 0, 0, time.UTC)
    if !got.Equal(want) {
        t.Fatalf("got %v, want %v", got, want)
    }

    // Unpadded days parse too.
    got, ok = ParseBrentDate("1-Jun-20")
    if !ok {
        t.Fatalf("expected ok for unpadded day")
    }
    if !got.Equal(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("got %v", got)
    }

    if _, ok := ParseBrentDate(""); ok {
        t.Fatalf("expected not ok for empty string")
    }
    if _, ok := ParseBrentDate("2020-06-01"); ok {
        t.Fatalf("expected not ok for ISO date")
    }
}

func TestParseCalendarDate(t *testing.T) {
    got, ok := ParseCalendarDate("2020-03-06")
    if !ok {
        t.Fatalf("expected ok")
    }
    if !got.Equal(time.Date(2020, 3, 6, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("got %v", got)
    }
    if _, ok := ParseCalendarDate("6-Mar-20"); ok {
        t.Fatalf("expected not ok for archive format")
    }
}

func TestParseCalendarDateDefault(t *testing.T) {
    def := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
    if got := ParseCalendarDateDefault("", def); !got.Equal(def) {
        t.Fatalf("expected default for empty input")
    }
    if got := ParseCalendarDateDefault("bogus", def); !got.Equal(def) {
        t.Fatalf("expected default for invalid input")
    }
    want := time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)
    if got := ParseCalendarDateDefault("2021-07-04", def); !got.Equal(want) {
        t.Fatalf("got %v, want %v", got, want)
    }
}