package logparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/logsearch/internal/model"
)

// timestampLayouts are the textual forms the semantic service returns for TIMESTAMP.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a textual or epoch timestamp. Epoch values are accepted in
// seconds (optionally fractional) as Snowflake renders TIMESTAMP_NTZ in JSON.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		whole := int64(secs)
		nanos := int64((secs - float64(whole)) * 1e9)
		return time.Unix(whole, nanos).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// FormatTimestamp renders a timestamp for tables and detail cards.
func FormatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(model.DisplayTimeLayout)
}

// TruncateDisplay cuts a raw timestamp string to its first 19 characters
// (YYYY-MM-DD HH:MM:SS), the way semantic results are listed.
func TruncateDisplay(raw string) string {
	if len(raw) <= model.SemanticTimestampDisplay {
		return raw
	}
	return raw[:model.SemanticTimestampDisplay]
}
