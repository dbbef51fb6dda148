package httpserver

import (
	"strings"
	"time"

	"github.com/tinytelemetry/logsearch/internal/analysis"
	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/query"
)

// keywordForm is the keyword page query string. Filters and SourceFilters are set by
// hidden inputs so a submitted group with every box unchecked can be told apart from a
// group that was never rendered. SourceFilters is only sent when the source list loaded.
type keywordForm struct {
	Query         string   `form:"q"`
	Mode          string   `form:"mode"`
	Range         string   `form:"range"`
	Start         string   `form:"start"`
	End           string   `form:"end"`
	Severities    []string `form:"sev"`
	Sources       []string `form:"src"`
	Filters       bool     `form:"filters"`
	SourceFilters bool     `form:"srcfilters"`
	Limit         int      `form:"limit" binding:"gte=0"`
	Page          int      `form:"page" binding:"gte=0"`
	Search        bool     `form:"search"`
}

func (f keywordForm) selections() (severities, sources []string) {
	severities, sources = f.Severities, f.Sources
	if f.Filters && severities == nil {
		severities = []string{}
	}
	if f.SourceFilters && sources == nil {
		sources = []string{}
	}
	return severities, sources
}

func (f keywordForm) toQuery(now time.Time) (model.KeywordQuery, error) {
	mode, err := parseMode(f.Mode)
	if err != nil {
		return model.KeywordQuery{}, err
	}
	start, end, err := query.ResolveTimeRange(f.Range, f.Start, f.End, now)
	if err != nil {
		return model.KeywordQuery{}, badRequest(err.Error())
	}
	severities, sources := f.selections()
	return model.KeywordQuery{
		Text:       strings.TrimSpace(f.Query),
		Mode:       mode,
		Start:      start,
		End:        end,
		Severities: severities,
		Sources:    sources,
		Limit:      f.Limit,
	}, nil
}

// keywordSearchRequest is the JSON body of POST /api/keyword/search. A null or absent
// list selects everything; an empty list selects nothing.
type keywordSearchRequest struct {
	Query      string   `json:"query"`
	Mode       string   `json:"mode"`
	Range      string   `json:"range"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Severities []string `json:"severities"`
	Sources    []string `json:"sources"`
	Limit      int      `json:"limit" binding:"gte=0"`
}

func (r keywordSearchRequest) toQuery(now time.Time) (model.KeywordQuery, error) {
	return keywordForm{
		Query:      r.Query,
		Mode:       r.Mode,
		Range:      r.Range,
		Start:      r.Start,
		End:        r.End,
		Severities: r.Severities,
		Sources:    r.Sources,
		Limit:      r.Limit,
	}.toQuery(now)
}

func parseMode(raw string) (model.SearchMode, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return model.SearchModeOr, nil
	}
	mode := model.SearchMode(raw)
	if !mode.Valid() {
		return "", badRequest("unknown search mode " + raw)
	}
	return mode, nil
}

// semanticForm is shared by the semantic page form and the JSON API.
type semanticForm struct {
	Query      string   `form:"query" json:"query"`
	Severities []string `form:"sev" json:"severities"`
	Sources    []string `form:"src" json:"sources"`
	Limit      int      `form:"limit" json:"limit" binding:"gte=0"`
}

func (f semanticForm) toQuery() (model.SemanticQuery, error) {
	text := strings.TrimSpace(f.Query)
	if text == "" {
		return model.SemanticQuery{}, badRequest("enter a query to search")
	}
	return model.SemanticQuery{
		Query:      text,
		Severities: f.Severities,
		Sources:    f.Sources,
		Limit:      query.ClampLimit(f.Limit, model.DefaultSemanticLimit, model.MinSemanticLimit, model.MaxSemanticLimit),
	}, nil
}

// adminSizeForm carries the requested warehouse size.
type adminSizeForm struct {
	Size     string `form:"size" json:"size" binding:"required"`
	Redirect string `form:"redirect" json:"-"`
}

// summary is the aggregate view of a result set used by the charts and the JSON API.
type summary struct {
	Total      int                     `json:"total"`
	Severities analysis.SeverityCounts `json:"severities"`
	Timeline   []analysis.HourBucket   `json:"timeline"`
	TopSources []analysis.ValueCount   `json:"top_sources"`
	BySeverity []analysis.ValueCount   `json:"by_severity"`
	TopHosts   []analysis.ValueCount   `json:"top_hosts"`
	Fields     []analysis.Field        `json:"fields"`
}

func summarize(records []model.LogRecord) summary {
	return summary{
		Total:      len(records),
		Severities: analysis.CountSeverities(records),
		Timeline:   analysis.Timeline(records),
		TopSources: analysis.TopSources(records),
		BySeverity: analysis.SeverityTable(records),
		TopHosts:   analysis.TopHosts(records),
		Fields:     analysis.ExtractRecordFields(records),
	}
}

// safeRedirect keeps form redirects on this site.
func safeRedirect(target, fallback string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.Contains(target, `\`) {
		return target
	}
	return fallback
}
