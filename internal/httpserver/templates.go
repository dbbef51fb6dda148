package httpserver

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/tinytelemetry/logsearch/internal/analysis"
	"github.com/tinytelemetry/logsearch/internal/logparse"
	"github.com/tinytelemetry/logsearch/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"ts":       logparse.FormatTimestamp,
	"sevClass": logparse.SeverityClass,
	"hour": func(t time.Time) string {
		return t.Format("01-02 15:00")
	},
	"pct": func(n, total int) string {
		if total <= 0 {
			return "0"
		}
		return fmt.Sprintf("%.1f", float64(n)*100/float64(total))
	},
	"maxCount":    maxCount,
	"maxBucket":   maxBucket,
	"levelCount":  func(c analysis.SeverityCounts, level string) int { return c.Count(level) },
	"bucketLevel": func(b analysis.HourBucket, level string) int { return b.Levels[level] },
	"otherLevel":  func() string { return analysis.SeverityOther },
	"panel": func(p any, redirect string) map[string]any {
		return map[string]any{"Panel": p, "Redirect": redirect}
	},
	"severities": model.Severities,
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

func maxCount(values []analysis.ValueCount) int {
	m := 0
	for _, v := range values {
		m = max(m, v.Count)
	}
	return m
}

func maxBucket(buckets []analysis.HourBucket) int {
	m := 0
	for _, b := range buckets {
		m = max(m, b.Total)
	}
	return m
}
