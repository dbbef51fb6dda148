package query

import (
	"fmt"
	"time"
)

// TimeRange is a keyword page time preset.
type TimeRange int

const (
	TimeRangeLastHour TimeRange = iota
	TimeRangeLast6Hours
	TimeRangeLast24Hours
	TimeRangeLast7Days
	TimeRangeLast30Days
	TimeRangeLast3Months
	TimeRangeLastYear
	TimeRangeLast3Years
	TimeRangeCustom
)

// DefaultTimeRange is selected when the page loads.
const DefaultTimeRange = TimeRangeLast30Days

// DateLayout is the layout of custom range inputs.
const DateLayout = "2006-01-02"

// TimeRanges returns every preset in menu order.
func TimeRanges() []TimeRange {
	return []TimeRange{
		TimeRangeLastHour, TimeRangeLast6Hours, TimeRangeLast24Hours, TimeRangeLast7Days,
		TimeRangeLast30Days, TimeRangeLast3Months, TimeRangeLastYear, TimeRangeLast3Years,
		TimeRangeCustom,
	}
}

func (tr TimeRange) String() string {
	switch tr {
	case TimeRangeLastHour:
		return "Last 1 hour"
	case TimeRangeLast6Hours:
		return "Last 6 hours"
	case TimeRangeLast24Hours:
		return "Last 24 hours"
	case TimeRangeLast7Days:
		return "Last 7 days"
	case TimeRangeLast30Days:
		return "Last 30 days"
	case TimeRangeLast3Months:
		return "Last 3 months"
	case TimeRangeLastYear:
		return "Last 1 year"
	case TimeRangeLast3Years:
		return "Last 3 years"
	case TimeRangeCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Key is the form value for the preset.
func (tr TimeRange) Key() string {
	switch tr {
	case TimeRangeLastHour:
		return "1h"
	case TimeRangeLast6Hours:
		return "6h"
	case TimeRangeLast24Hours:
		return "24h"
	case TimeRangeLast7Days:
		return "7d"
	case TimeRangeLast30Days:
		return "30d"
	case TimeRangeLast3Months:
		return "90d"
	case TimeRangeLastYear:
		return "365d"
	case TimeRangeLast3Years:
		return "1095d"
	case TimeRangeCustom:
		return "custom"
	default:
		return ""
	}
}

// Duration returns the look-back window. Custom has none.
func (tr TimeRange) Duration() time.Duration {
	const day = 24 * time.Hour
	switch tr {
	case TimeRangeLastHour:
		return time.Hour
	case TimeRangeLast6Hours:
		return 6 * time.Hour
	case TimeRangeLast24Hours:
		return 24 * time.Hour
	case TimeRangeLast7Days:
		return 7 * day
	case TimeRangeLast30Days:
		return 30 * day
	case TimeRangeLast3Months:
		return 90 * day
	case TimeRangeLastYear:
		return 365 * day
	case TimeRangeLast3Years:
		return 1095 * day
	default:
		return 0
	}
}

// ParseTimeRange maps a form key to a preset. Empty input selects the default.
func ParseTimeRange(key string) (TimeRange, error) {
	if key == "" {
		return DefaultTimeRange, nil
	}
	for _, tr := range TimeRanges() {
		if tr.Key() == key {
			return tr, nil
		}
	}
	return 0, fmt.Errorf("unknown time range %q", key)
}

// Bounds resolves a preset relative to now.
func (tr TimeRange) Bounds(now time.Time) (time.Time, time.Time) {
	return now.Add(-tr.Duration()), now
}

// DefaultCustomDates returns the custom inputs shown before the user picks: a week ago to today.
func DefaultCustomDates(now time.Time) (time.Time, time.Time) {
	today := startOfDay(now)
	return today.AddDate(0, 0, -7), today
}

// CustomBounds spans from the start date at midnight to the last microsecond of the end date.
func CustomBounds(startDate, endDate time.Time) (time.Time, time.Time, error) {
	start := startOfDay(startDate)
	end := startOfDay(endDate).Add(24*time.Hour - time.Microsecond)
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s",
			endDate.Format(DateLayout), startDate.Format(DateLayout))
	}
	return start, end, nil
}

// ResolveTimeRange turns the page inputs into concrete bounds. Blank custom dates fall back
// to DefaultCustomDates.
func ResolveTimeRange(key, startDate, endDate string, now time.Time) (time.Time, time.Time, error) {
	tr, err := ParseTimeRange(key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if tr != TimeRangeCustom {
		start, end := tr.Bounds(now)
		return start, end, nil
	}

	defStart, defEnd := DefaultCustomDates(now)
	start, err := parseDate(startDate, defStart, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(endDate, defEnd, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return CustomBounds(start, end)
}

func parseDate(raw string, def time.Time, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
