package analytics

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar days
const DateLayout = "2006-01-02"

// Preset names a relative reporting window
type Preset string

const (
	PresetToday       Preset = "today"
	PresetYesterday   Preset = "yesterday"
	PresetLast7Days   Preset = "last_7_days"
	PresetLast14Days  Preset = "last_14_days"
	PresetLast30Days  Preset = "last_30_days"
	PresetLast90Days  Preset = "last_90_days"
	PresetThisWeek    Preset = "this_week"
	PresetLastWeek    Preset = "last_week"
	PresetThisMonth   Preset = "this_month"
	PresetLastMonth   Preset = "last_month"
	PresetThisQuarter Preset = "this_quarter"
	PresetThisYear    Preset = "this_year"
)

// DefaultPreset is used when a request names neither a preset nor a custom range
const DefaultPreset = PresetLast7Days

var (
	ErrUnknownPreset    = errors.New("unknown date range preset")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrEndBeforeStart   = errors.New("end date is before start date")
	ErrIncompleteCustom = errors.New("custom range requires both start and end")
)

// AllPresets lists presets in the order they are offered to clients
func AllPresets() []Preset {
	return []Preset{
		PresetToday, PresetYesterday,
		PresetLast7Days, PresetLast14Days, PresetLast30Days, PresetLast90Days,
		PresetThisWeek, PresetLastWeek,
		PresetThisMonth, PresetLastMonth,
		PresetThisQuarter, PresetThisYear,
	}
}

// Valid reports whether p is a known preset
func (p Preset) Valid() bool {
	for _, known := range AllPresets() {
		if p == known {
			return true
		}
	}
	return false
}

// DateRange is an inclusive window from the first instant of Start's day to the last instant of End's day
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of calendar days covered by r
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	s := civilDay(r.Start)
	e := civilDay(r.End.In(r.Start.Location()))
	return int(e.Sub(s).Hours()/24) + 1
}

// Contains reports whether t falls inside r
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// StartDate and EndDate return the bounds formatted as YYYY-MM-DD
func (r DateRange) StartDate() string { return r.Start.Format(DateLayout) }
func (r DateRange) EndDate() string   { return r.End.Format(DateLayout) }

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.StartDate(), r.EndDate())
}

// civilDay maps a local calendar day onto UTC midnight so that day arithmetic ignores DST shifts
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func span(first, last time.Time) DateRange {
	return DateRange{Start: startOfDay(first), End: endOfDay(last)}
}

// ResolvePreset evaluates p relative to now, in now's location
func ResolvePreset(p Preset, now time.Time) (DateRange, error) {
	y, m, d := now.Date()
	loc := now.Location()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	lastNDays := func(n int) DateRange {
		return span(today.AddDate(0, 0, -(n - 1)), today)
	}

	switch p {
	case PresetToday:
		return span(today, today), nil
	case PresetYesterday:
		yesterday := today.AddDate(0, 0, -1)
		return span(yesterday, yesterday), nil
	case PresetLast7Days:
		return lastNDays(7), nil
	case PresetLast14Days:
		return lastNDays(14), nil
	case PresetLast30Days:
		return lastNDays(30), nil
	case PresetLast90Days:
		return lastNDays(90), nil
	case PresetThisWeek:
		return span(mondayOf(today), today), nil
	case PresetLastWeek:
		monday := mondayOf(today).AddDate(0, 0, -7)
		return span(monday, monday.AddDate(0, 0, 6)), nil
	case PresetThisMonth:
		return span(time.Date(y, m, 1, 0, 0, 0, 0, loc), today), nil
	case PresetLastMonth:
		first := time.Date(y, m-1, 1, 0, 0, 0, 0, loc)
		last := time.Date(y, m, 0, 0, 0, 0, 0, loc)
		return span(first, last), nil
	case PresetThisQuarter:
		qm := time.Month((int(m)-1)/3*3 + 1)
		return span(time.Date(y, qm, 1, 0, 0, 0, 0, loc), today), nil
	case PresetThisYear:
		return span(time.Date(y, time.January, 1, 0, 0, 0, 0, loc), today), nil
	default:
		return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownPreset, string(p))
	}
}

func mondayOf(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// PreviousPeriod returns the window of the same number of days ending the day before r starts
func PreviousPeriod(r DateRange) DateRange {
	n := r.Days()
	if n == 0 {
		return r
	}
	prevEnd := startOfDay(r.Start).AddDate(0, 0, -1)
	return span(prevEnd.AddDate(0, 0, -(n - 1)), prevEnd)
}

// NewCustomRange parses YYYY-MM-DD bounds in loc
func NewCustomRange(start, end string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := time.ParseInLocation(DateLayout, start, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start %q", ErrInvalidDate, start)
	}
	e, err := time.ParseInLocation(DateLayout, end, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end %q", ErrInvalidDate, end)
	}
	if e.Before(s) {
		return DateRange{}, ErrEndBeforeStart
	}
	return span(s, e), nil
}

// ResolveRange picks a custom range when start or end is given, the named preset otherwise,
// and DefaultPreset when everything is empty.
func ResolveRange(preset, start, end string, now time.Time) (DateRange, error) {
	if start != "" || end != "" {
		if start == "" || end == "" {
			return DateRange{}, ErrIncompleteCustom
		}
		return NewCustomRange(start, end, now.Location())
	}
	if preset == "" {
		return ResolvePreset(DefaultPreset, now)
	}
	return ResolvePreset(Preset(preset), now)
}
