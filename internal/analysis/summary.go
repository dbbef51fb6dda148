// Package analysis summarizes a result set for the charts, tables, and AI prompt.
package analysis

import (
	"sort"
	"time"

	"github.com/tinytelemetry/logsearch/internal/logparse"
	"github.com/tinytelemetry/logsearch/internal/model"
)

// SeverityOther collects severities outside the five-level universe.
const SeverityOther = "OTHER"

// SeverityCounts is the per-level breakdown of a result set.
// The level counts plus Other always equal Total.
type SeverityCounts struct {
	Total  int            `json:"total"`
	Levels map[string]int `json:"levels"`
	Other  int            `json:"other"`
}

// Count returns the count for a level in the universe.
func (c SeverityCounts) Count(level string) int {
	return c.Levels[level]
}

// CountSeverities counts records per normalized severity.
func CountSeverities(records []model.LogRecord) SeverityCounts {
	counts := SeverityCounts{Levels: make(map[string]int, len(model.Severities()))}
	for _, sev := range model.Severities() {
		counts.Levels[sev] = 0
	}
	for _, r := range records {
		counts.Total++
		sev := logparse.NormalizeSeverity(r.Severity)
		if _, ok := counts.Levels[sev]; ok {
			counts.Levels[sev]++
		} else {
			counts.Other++
		}
	}
	return counts
}

// HourBucket holds severity counts for one hour.
type HourBucket struct {
	Hour   time.Time      `json:"hour"`
	Levels map[string]int `json:"levels"`
	Total  int            `json:"total"`
}

// Timeline buckets records by hour (floored) and severity, ascending by hour.
// Severities outside the universe are counted under SeverityOther.
func Timeline(records []model.LogRecord) []HourBucket {
	byHour := make(map[int64]*HourBucket)
	for _, r := range records {
		hour := floorHour(r.Timestamp)
		b, ok := byHour[hour.Unix()]
		if !ok {
			b = &HourBucket{Hour: hour, Levels: make(map[string]int)}
			byHour[hour.Unix()] = b
		}
		sev := logparse.NormalizeSeverity(r.Severity)
		if !logparse.IsKnownSeverity(sev) {
			sev = SeverityOther
		}
		b.Levels[sev]++
		b.Total++
	}

	buckets := make([]HourBucket, 0, len(byHour))
	for _, b := range byHour {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Hour.Before(buckets[j].Hour) })
	return buckets
}

// floorHour drops minutes and seconds on the wall clock of t's own location.
func floorHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// ValueCount is one row of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// TopValues counts values and orders them by count descending, then value ascending.
// n <= 0 returns every value.
func TopValues(values []string, n int) []ValueCount {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	return rankCounts(counts, n)
}

func rankCounts(counts map[string]int, n int) []ValueCount {
	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TopSources ranks every source in the result set.
func TopSources(records []model.LogRecord) []ValueCount {
	return TopValues(column(records, func(r model.LogRecord) string { return r.Source }), 0)
}

// TopHosts ranks hosts, capped at model.TopHostsLimit.
func TopHosts(records []model.LogRecord) []ValueCount {
	return TopValues(column(records, func(r model.LogRecord) string { return r.Host }), model.TopHostsLimit)
}

// SeverityTable ranks the severities present in the result set.
func SeverityTable(records []model.LogRecord) []ValueCount {
	return TopValues(column(records, func(r model.LogRecord) string { return r.Severity }), 0)
}

func column(records []model.LogRecord, get func(model.LogRecord) string) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = get(r)
	}
	return out
}

// Page is one slice of the events table.
type Page struct {
	Records    []model.LogRecord `json:"records"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	Total      int               `json:"total"`
}

// Paginate returns page (1-based) of records. Out-of-range pages are clamped.
func Paginate(records []model.LogRecord, page, size int) Page {
	if size <= 0 {
		size = model.DefaultEventsPageSize
	}
	total := len(records)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, total)
	return Page{
		Records:    records[start:end],
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
		Total:      total,
	}
}

// Details returns the first model.DetailRows records.
func Details(records []model.LogRecord) []model.LogRecord {
	return records[:min(len(records), model.DetailRows)]
}
