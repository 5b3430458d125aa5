// Package timeline orders parsed Records, collapses duplicate timestamps and
// segments the result into per-day groups.
package timeline

import (
	"fmt"
	"slices"

	"github.com/hpungsan/libreplot/internal/record"
)

// SplitMode selects how consecutive records are compared when splitting days.
type SplitMode string

const (
	// SplitDayOfMonth compares only the day of the month. Two records from the
	// 5th of different months stay in one group if they are adjacent.
	SplitDayOfMonth SplitMode = "day_of_month"

	// SplitCalendarDate compares year, month and day.
	SplitCalendarDate SplitMode = "calendar_date"
)

// ParseSplitMode validates a configured split mode. Empty means SplitDayOfMonth.
func ParseSplitMode(s string) (SplitMode, error) {
	switch SplitMode(s) {
	case "", SplitDayOfMonth:
		return SplitDayOfMonth, nil
	case SplitCalendarDate:
		return SplitCalendarDate, nil
	}
	return "", fmt.Errorf("unknown day split mode %q (want %s or %s)", s, SplitDayOfMonth, SplitCalendarDate)
}

// DayGroup is a maximal run of time-ordered records on one day.
type DayGroup struct {
	Records []record.Record
}

// Title returns the day of the first record formatted as YYYY-MM-DD.
func (g DayGroup) Title() string {
	if len(g.Records) == 0 {
		return ""
	}
	return g.Records[0].Day()
}

// FileName returns the chart file name for the group.
func (g DayGroup) FileName() string {
	return g.Title() + ".png"
}

// Sort orders records by timestamp, keeping the input order of equal timestamps.
func Sort(records []record.Record) []record.Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b record.Record) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// Merge collapses every run of equal timestamps in a sorted slice into one
// record. Each numeric field takes the last nonzero value of the run in
// arrival order; ID and Kind come from the first record of the run.
func Merge(sorted []record.Record) []record.Record {
	out := make([]record.Record, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Timestamp.Equal(sorted[start].Timestamp) {
			end++
		}
		out = append(out, fold(sorted[start:end]))
		start = end
	}
	return out
}

func fold(run []record.Record) record.Record {
	merged := run[0]
	for _, r := range run[1:] {
		for _, f := range record.Fields {
			if v := r.Get(f); v != 0 {
				*merged.Ptr(f) = v
			}
		}
	}
	return merged
}

// SplitDays groups consecutive records that fall on the same day.
func SplitDays(records []record.Record, mode SplitMode) []DayGroup {
	var groups []DayGroup
	var current []record.Record
	for _, r := range records {
		if len(current) > 0 && !sameDay(current[len(current)-1], r, mode) {
			groups = append(groups, DayGroup{Records: current})
			current = nil
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		groups = append(groups, DayGroup{Records: current})
	}
	return groups
}

func sameDay(a, b record.Record, mode SplitMode) bool {
	if mode == SplitCalendarDate {
		ay, am, ad := a.Timestamp.Date()
		by, bm, bd := b.Timestamp.Date()
		return ay == by && am == bm && ad == bd
	}
	return a.Timestamp.Day() == b.Timestamp.Day()
}

// Normalize sorts, merges and splits records into day groups.
func Normalize(records []record.Record, mode SplitMode) []DayGroup {
	return SplitDays(Merge(Sort(records)), mode)
}

// Flatten concatenates the records of all groups in order.
func Flatten(groups []DayGroup) []record.Record {
	var out []record.Record
	for _, g := range groups {
		out = append(out, g.Records...)
	}
	return out
}
