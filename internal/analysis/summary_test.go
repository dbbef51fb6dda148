package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/logsearch/internal/model"
)

func rec(ts time.Time, sev, source, host, msg string) model.LogRecord {
	return model.LogRecord{Timestamp: ts, Severity: sev, Source: source, Host: host, Message: msg}
}

var base = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

func sampleRecords() []model.LogRecord {
	return []model.LogRecord{
		rec(base.Add(5*time.Minute), "ERROR", "api", "web-1", "request failed status=500 user_id=7"),
		rec(base.Add(10*time.Minute), "error", "api", "web-2", "request failed status=500 user_id=9"),
		rec(base.Add(70*time.Minute), "WARN", "worker", "job-1", "retry attempt 3 after 250ms"),
		rec(base.Add(75*time.Minute), "INFO", "billing", "web-1", "charge ok status=200"),
		rec(base.Add(80*time.Minute), "NOTICE", "billing", "web-1", "HTTP 404 returned"),
		rec(base.Add(130*time.Minute), "", "api", "web-3", "no fields here"),
	}
}

func TestCountSeveritiesSumsToTotal(t *testing.T) {
	inputs := [][]model.LogRecord{nil, sampleRecords()}
	for i := 0; i < 50; i++ {
		sev := []string{"FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE", "bogus", ""}[i%8]
		inputs = append(inputs, append(inputs[len(inputs)-1], rec(base, sev, "s", "h", "m")))
	}

	for _, records := range inputs {
		counts := CountSeverities(records)
		sum := counts.Other
		for _, sev := range model.Severities() {
			sum += counts.Count(sev)
		}
		assert.Equal(t, len(records), counts.Total)
		assert.Equal(t, counts.Total, sum)
	}
}

func TestCountSeverities(t *testing.T) {
	counts := CountSeverities(sampleRecords())
	assert.Equal(t, 6, counts.Total)
	assert.Equal(t, 2, counts.Count("ERROR"))
	assert.Equal(t, 1, counts.Count("WARN"))
	assert.Equal(t, 1, counts.Count("INFO"))
	assert.Equal(t, 0, counts.Count("FATAL"))
	assert.Equal(t, 2, counts.Other)
}

func TestTimeline(t *testing.T) {
	buckets := Timeline(sampleRecords())
	require.Len(t, buckets, 3)

	assert.Equal(t, base, buckets[0].Hour)
	assert.Equal(t, 2, buckets[0].Levels["ERROR"])
	assert.Equal(t, 2, buckets[0].Total)

	assert.Equal(t, base.Add(time.Hour), buckets[1].Hour)
	assert.Equal(t, 1, buckets[1].Levels["WARN"])
	assert.Equal(t, 1, buckets[1].Levels["INFO"])
	assert.Equal(t, 1, buckets[1].Levels[SeverityOther])
	assert.Equal(t, 3, buckets[1].Total)

	assert.Equal(t, base.Add(2*time.Hour), buckets[2].Hour)
	assert.Empty(t, Timeline(nil))
}

func TestTimelineFloorsOnWallClock(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2025, 3, 4, 15, 10, 0, 0, kolkata)
	buckets := Timeline([]model.LogRecord{
		rec(ts, "INFO", "api", "web-1", "a"),
		rec(ts.Add(45*time.Minute), "INFO", "api", "web-1", "b"),
	})
	require.Len(t, buckets, 1)
	assert.Equal(t, time.Date(2025, 3, 4, 15, 0, 0, 0, kolkata), buckets[0].Hour)
	assert.Equal(t, 2, buckets[0].Total)
}

func TestTopValues(t *testing.T) {
	got := TopValues([]string{"b", "a", "c", "a", "b", "d"}, 0)
	assert.Equal(t, []ValueCount{{"a", 2}, {"b", 2}, {"c", 1}, {"d", 1}}, got)

	got = TopValues([]string{"b", "a", "c", "a", "b", "d"}, 3)
	assert.Equal(t, []ValueCount{{"a", 2}, {"b", 2}, {"c", 1}}, got)
}

func TestTopSourcesAndHosts(t *testing.T) {
	records := sampleRecords()
	assert.Equal(t, []ValueCount{{"api", 3}, {"billing", 2}, {"worker", 1}}, TopSources(records))

	hosts := TopHosts(records)
	assert.Equal(t, ValueCount{"web-1", 3}, hosts[0])

	for i := 0; i < 30; i++ {
		records = append(records, rec(base, "INFO", "api", fmt.Sprintf("host-%02d", i), "x"))
	}
	assert.Len(t, TopHosts(records), model.TopHostsLimit)
}

func TestPaginate(t *testing.T) {
	records := make([]model.LogRecord, 250)
	for i := range records {
		records[i].LogID = fmt.Sprint(i)
	}

	p := Paginate(records, 1, 100)
	assert.Len(t, p.Records, 100)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, "0", p.Records[0].LogID)

	p = Paginate(records, 3, 100)
	assert.Len(t, p.Records, 50)
	assert.Equal(t, "200", p.Records[0].LogID)

	p = Paginate(records, 9, 0)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, model.DefaultEventsPageSize, p.PageSize)

	p = Paginate(nil, 0, 100)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Records)
}

func TestDetails(t *testing.T) {
	records := make([]model.LogRecord, 45)
	assert.Len(t, Details(records), model.DetailRows)
	assert.Len(t, Details(records[:3]), 3)
}
