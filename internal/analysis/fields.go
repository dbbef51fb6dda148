package analysis

import (
	"regexp"
	"sort"

	"github.com/tinytelemetry/logsearch/internal/model"
)

var keyValuePattern = regexp.MustCompile(`([a-z_]+)=(\S+)`)

// supplementalPatterns cover well-known values that are not written as key=value.
// Order is fixed so extraction is deterministic.
var supplementalPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"http_status", regexp.MustCompile(`HTTP\s(\d{3})`)},
	{"timeout_ms", regexp.MustCompile(`after\s(\d+)ms`)},
	{"retry_attempt", regexp.MustCompile(`attempt\s(\d+)`)},
}

// Field is one extracted key with its most frequent values.
type Field struct {
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Values []ValueCount `json:"values"`
}

// ExtractFields parses key=value pairs out of messages, plus the supplemental patterns for
// keys not found that way. Each field keeps its top 10 values, and fields are ranked by the
// sum of those counts descending, then by name, capped at 15.
func ExtractFields(messages []string) []Field {
	byKey := make(map[string]map[string]int)
	for _, msg := range messages {
		for _, m := range keyValuePattern.FindAllStringSubmatch(msg, -1) {
			addValue(byKey, m[1], m[2])
		}
	}

	for _, sp := range supplementalPatterns {
		if _, ok := byKey[sp.name]; ok {
			continue
		}
		for _, msg := range messages {
			if m := sp.pattern.FindStringSubmatch(msg); m != nil {
				addValue(byKey, sp.name, m[1])
			}
		}
	}

	fields := make([]Field, 0, len(byKey))
	for key, counts := range byKey {
		top := rankCounts(counts, model.TopFieldValuesLimit)
		total := 0
		for _, vc := range top {
			total += vc.Count
		}
		fields = append(fields, Field{Name: key, Total: total, Values: top})
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Total != fields[j].Total {
			return fields[i].Total > fields[j].Total
		}
		return fields[i].Name < fields[j].Name
	})
	if len(fields) > model.TopFieldsLimit {
		fields = fields[:model.TopFieldsLimit]
	}
	return fields
}

// ExtractRecordFields runs ExtractFields over the message column.
func ExtractRecordFields(records []model.LogRecord) []Field {
	return ExtractFields(column(records, func(r model.LogRecord) string { return r.Message }))
}

func addValue(byKey map[string]map[string]int, key, value string) {
	counts, ok := byKey[key]
	if !ok {
		counts = make(map[string]int)
		byKey[key] = counts
	}
	counts[value]++
}
