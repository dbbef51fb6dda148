package analysis

import (
	"fmt"
	"strings"

	"github.com/tinytelemetry/logsearch/internal/logparse"
	"github.com/tinytelemetry/logsearch/internal/model"
)

// ContextLine renders one record for the prompt context.
func ContextLine(r model.LogRecord) string {
	ts := logparse.TruncateDisplay(logparse.FormatTimestamp(r.Timestamp))
	return fmt.Sprintf("[%s] %s | %s | %s | %s", r.Severity, ts, r.Source, r.Host, r.Message)
}

// BuildAnalysisPrompt embeds the result set in the analyst prompt sent to the completion
// endpoint. An empty language selects English.
func BuildAnalysisPrompt(query string, records []model.LogRecord, language string) string {
	if strings.TrimSpace(language) == "" {
		language = model.DefaultAnalysisLanguage
	}

	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = ContextLine(r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert in log analysis. The following log records were judged by semantic search to be relevant to the query %q.\n\n", query)
	fmt.Fprintf(&b, "Write your analysis in %s, covering:\n\n", language)
	b.WriteString("1. **Overview**: Summarize the overall trend of the extracted logs.\n")
	b.WriteString("2. **Probable root cause**: Infer the underlying cause of the problem from the log contents.\n")
	b.WriteString("3. **Impact**: Lay out the affected hosts and services and the distribution of severities.\n")
	b.WriteString("4. **Recommended actions**: Propose concrete steps to resolve the problem.\n")
	b.WriteString("5. **Caveats**: Point out anything easy to overlook or that needs further investigation.\n\n")
	b.WriteString("--- log data ---\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n--- end of log data ---")
	return b.String()
}
