package duckdb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/tinytelemetry/logsearch/internal/logparse"
	"github.com/tinytelemetry/logsearch/internal/model"
)

const seedBatchSize = 1000

// SeedStats summarizes a seed load.
type SeedStats struct {
	Lines    int
	Inserted int
	Skipped  int
}

// LoadSeedFile reads a JSON Lines file into the log table.
func (s *Store) LoadSeedFile(ctx context.Context, path string) (SeedStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return SeedStats{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	stats, err := s.LoadSeed(ctx, f)
	if err != nil {
		return stats, fmt.Errorf("load %s: %w", path, err)
	}
	s.logger.Info("seed loaded",
		zap.String("path", path),
		zap.Int("lines", stats.Lines),
		zap.Int("inserted", stats.Inserted),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// LoadSeed reads one JSON object per line. Keys match the log table columns in either
// case; lines that are blank, malformed, or lack a timestamp are skipped.
func (s *Store) LoadSeed(ctx context.Context, r io.Reader) (SeedStats, error) {
	var (
		stats  SeedStats
		parser fastjson.Parser
		batch  = make([]model.LogRecord, 0, seedBatchSize)
	)

	flush := func() error {
		n, err := s.InsertLogBatch(ctx, batch)
		if err != nil {
			return err
		}
		stats.Inserted += n
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		v, err := parser.Parse(line)
		if err != nil {
			s.logger.Debug("seed line skipped", zap.Int("line", stats.Lines), zap.Error(err))
			stats.Skipped++
			continue
		}
		rec, ok := recordFromJSON(v)
		if !ok {
			stats.Skipped++
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= seedBatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read seed: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func recordFromJSON(v *fastjson.Value) (model.LogRecord, bool) {
	if v.Type() != fastjson.TypeObject {
		return model.LogRecord{}, false
	}

	ts, ok := timestampField(field(v, "TIMESTAMP", "timestamp", "ts"))
	if !ok {
		return model.LogRecord{}, false
	}

	message := stringField(field(v, "MESSAGE", "message", "msg"))
	return model.LogRecord{
		LogID:     stringField(field(v, "LOG_ID", "log_id", "id")),
		Timestamp: ts,
		Severity:  stringField(field(v, "SEVERITY", "severity", "level")),
		Source:    stringField(field(v, "SOURCE", "source", "service")),
		Host:      stringField(field(v, "HOST", "host", "hostname")),
		Message:   message,
	}, true
}

func field(v *fastjson.Value, keys ...string) *fastjson.Value {
	for _, k := range keys {
		if f := v.Get(k); f != nil && f.Type() != fastjson.TypeNull {
			return f
		}
	}
	return nil
}

func stringField(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	return v.String()
}

func timestampField(v *fastjson.Value) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	var raw string
	switch v.Type() {
	case fastjson.TypeString:
		raw = string(v.GetStringBytes())
	case fastjson.TypeNumber:
		raw = v.String()
	default:
		return time.Time{}, false
	}
	ts, err := logparse.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
