package logparse

import (
	"strings"

	"github.com/tinytelemetry/logsearch/internal/model"
)

// NormalizeSeverity converts severity spellings returned by the warehouse or the
// semantic service to the five-level universe. Values that match no known alias are
// returned upper-cased so callers can bucket them separately.
func NormalizeSeverity(severity string) string {
	normalized := strings.ToUpper(strings.TrimSpace(severity))

	switch normalized {
	case "TRACE", "TRAC", "TRC", "DEBUG", "DEBU", "DBG", "DEB":
		return model.SeverityDebug
	case "INFO", "INFORMATION", "INF":
		return model.SeverityInfo
	case "WARN", "WARNING", "WRNG", "WRN":
		return model.SeverityWarn
	case "ERROR", "ERR", "ERRO":
		return model.SeverityError
	case "FATAL", "FATL", "FTL", "CRITICAL", "CRIT", "CRT", "PANIC", "PNC":
		return model.SeverityFatal
	default:
		if len(normalized) >= 4 {
			switch normalized[:4] {
			case "INFO":
				return model.SeverityInfo
			case "WARN":
				return model.SeverityWarn
			case "ERRO":
				return model.SeverityError
			case "DEBU", "TRAC":
				return model.SeverityDebug
			case "FATA", "CRIT":
				return model.SeverityFatal
			}
		}
		return normalized
	}
}

// IsKnownSeverity reports whether s is one of the five levels.
func IsKnownSeverity(s string) bool {
	for _, sev := range model.Severities() {
		if s == sev {
			return true
		}
	}
	return false
}

// SeverityClass is the lower-case CSS class used for badges and cards.
func SeverityClass(s string) string {
	if !IsKnownSeverity(s) {
		return "other"
	}
	return strings.ToLower(s)
}
