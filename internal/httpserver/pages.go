package httpserver

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/logsearch/internal/analysis"
	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/query"
	"github.com/tinytelemetry/logsearch/internal/session"
)

// layoutData is shared by every page.
type layoutData struct {
	Title   string
	Active  string
	Backend string
	Notice  string
	Error   string
}

type rangeOption struct {
	Key   string
	Label string
}

// keywordView is the sidebar state echoed back into the form.
type keywordView struct {
	Query     string
	Mode      model.SearchMode
	Range     string
	StartDate string
	EndDate   string
	Limit     int
	Severity  map[string]bool
	Source    map[string]bool
}

type keywordResultView struct {
	Summary  summary
	Events   analysis.Page
	Details  []model.LogRecord
	RanAt    time.Time
	PrevURL  string
	NextURL  string
	HasQuery bool
}

type keywordPage struct {
	layoutData
	Form       keywordView
	Ranges     []rangeOption
	Modes      []model.SearchMode
	Severities []string
	Panels     sidePanels
	Result     *keywordResultView
}

func (s *Server) handleKeywordPage(c *gin.Context) {
	id := sessionID(c)
	ctx := c.Request.Context()
	now := s.now()

	var form keywordForm
	var pageErr string
	if err := c.ShouldBindQuery(&form); err != nil {
		pageErr = "Invalid search parameters: " + err.Error()
		form = keywordForm{}
	}

	panels := s.loadSidePanels(ctx, true)

	if form.Search && pageErr == "" {
		if err := s.runKeywordSearch(c, id, form, panels.Sources, now); err != nil {
			pageErr = "Search failed: " + describeError(err)
		}
	}

	notice, flashErr := s.deps.Sessions.TakeFlash(id)
	if pageErr == "" {
		pageErr = flashErr
	}

	page := keywordPage{
		layoutData: layoutData{
			Title:   "Keyword Search",
			Active:  "keyword",
			Backend: s.deps.Backend,
			Notice:  notice,
			Error:   pageErr,
		},
		Form:       newKeywordView(form, panels.Sources, now),
		Ranges:     rangeOptions(),
		Modes:      model.SearchModes(),
		Severities: model.Severities(),
		Panels:     panels,
	}

	if st := s.deps.Sessions.Get(id); st.Keyword != nil {
		page.Result = newKeywordResultView(st.Keyword, form.Page, c.Request.URL)
	}

	c.HTML(http.StatusOK, "keyword.html", page)
}

// runKeywordSearch stores the results in the session. On error the previous results stay.
func (s *Server) runKeywordSearch(c *gin.Context, id string, form keywordForm, universe []string, now time.Time) error {
	q, err := form.toQuery(now)
	if err != nil {
		return err
	}
	records, err := s.deps.Logs.SearchLogs(c.Request.Context(), q, universe)
	if err != nil {
		return err
	}
	s.deps.Sessions.Update(id, func(st *session.State) {
		st.Keyword = &session.KeywordResult{Query: q, Records: records, RanAt: now}
	})
	return nil
}

func newKeywordView(form keywordForm, sources []string, now time.Time) keywordView {
	v := keywordView{
		Query:    form.Query,
		Mode:     model.SearchModeOr,
		Range:    form.Range,
		Limit:    query.ClampLimit(form.Limit, model.DefaultKeywordLimit, model.MinKeywordLimit, model.MaxKeywordLimit),
		Severity: make(map[string]bool),
		Source:   make(map[string]bool),
	}
	if mode, err := parseMode(form.Mode); err == nil {
		v.Mode = mode
	}
	if _, err := query.ParseTimeRange(v.Range); err != nil || v.Range == "" {
		v.Range = query.DefaultTimeRange.Key()
	}

	defStart, defEnd := query.DefaultCustomDates(now)
	v.StartDate, v.EndDate = form.Start, form.End
	if v.StartDate == "" {
		v.StartDate = defStart.Format(query.DateLayout)
	}
	if v.EndDate == "" {
		v.EndDate = defEnd.Format(query.DateLayout)
	}

	severities, selected := form.selections()
	if severities == nil {
		severities = model.Severities()
	}
	if selected == nil {
		selected = sources
	}
	for _, sev := range severities {
		v.Severity[sev] = true
	}
	for _, src := range selected {
		v.Source[src] = true
	}
	return v
}

func newKeywordResultView(res *session.KeywordResult, page int, current *url.URL) *keywordResultView {
	events := analysis.Paginate(res.Records, page, model.DefaultEventsPageSize)
	v := &keywordResultView{
		Summary:  summarize(res.Records),
		Events:   events,
		Details:  analysis.Details(res.Records),
		RanAt:    res.RanAt,
		HasQuery: res.Query.Text != "",
	}
	if events.Page > 1 {
		v.PrevURL = pageURL(current, events.Page-1)
	}
	if events.Page < events.TotalPages {
		v.NextURL = pageURL(current, events.Page+1)
	}
	return v
}

// pageURL keeps the current filters but never re-runs the search.
func pageURL(current *url.URL, page int) string {
	values := current.Query()
	values.Del("search")
	values.Set("page", strconv.Itoa(page))
	return "/?" + values.Encode()
}

func rangeOptions() []rangeOption {
	ranges := query.TimeRanges()
	out := make([]rangeOption, len(ranges))
	for i, tr := range ranges {
		out[i] = rangeOption{Key: tr.Key(), Label: tr.String()}
	}
	return out
}

type semanticView struct {
	Query    string
	Limit    int
	Severity map[string]bool
	Source   map[string]bool
}

type semanticResultView struct {
	Query      model.SemanticQuery
	Records    []model.LogRecord
	Severities analysis.SeverityCounts
	Analysis   string
	RanAt      time.Time
}

type semanticPage struct {
	layoutData
	Form       semanticView
	Severities []string
	Panels     semanticPanels
	Result     *semanticResultView
	CanAnalyze bool
}

func (s *Server) handleSemanticPage(c *gin.Context) {
	id := sessionID(c)
	panels := s.loadSemanticPanels(c.Request.Context())
	notice, flashErr := s.deps.Sessions.TakeFlash(id)

	page := semanticPage{
		layoutData: layoutData{
			Title:   "Semantic Search",
			Active:  "semantic",
			Backend: s.deps.Backend,
			Notice:  notice,
			Error:   flashErr,
		},
		Form: semanticView{
			Limit:    model.DefaultSemanticLimit,
			Severity: make(map[string]bool),
			Source:   make(map[string]bool),
		},
		Severities: model.Severities(),
		Panels:     panels,
		CanAnalyze: s.deps.Completer != nil,
	}

	if st := s.deps.Sessions.Get(id); st.Semantic != nil {
		res := st.Semantic
		page.Form.Query = res.Query.Query
		page.Form.Limit = res.Query.Limit
		for _, sev := range res.Query.Severities {
			page.Form.Severity[sev] = true
		}
		for _, src := range res.Query.Sources {
			page.Form.Source[src] = true
		}
		page.Result = &semanticResultView{
			Query:      res.Query,
			Records:    res.Records,
			Severities: analysis.CountSeverities(res.Records),
			Analysis:   res.Analysis,
			RanAt:      res.RanAt,
		}
	}

	c.HTML(http.StatusOK, "semantic.html", page)
}

func (s *Server) handleSemanticSearchForm(c *gin.Context) {
	id := sessionID(c)
	var form semanticForm
	if err := c.ShouldBind(&form); err != nil {
		s.flashError(c, id, "/semantic", "Invalid search parameters: "+err.Error())
		return
	}
	q, err := form.toQuery()
	if err != nil {
		s.flashError(c, id, "/semantic", describeError(err))
		return
	}
	records, err := s.semanticSearch(c, q)
	if err != nil {
		s.flashError(c, id, "/semantic", "Semantic search failed: "+describeError(err))
		return
	}
	s.deps.Sessions.Update(id, func(st *session.State) {
		st.Semantic = &session.SemanticResult{Query: q, Records: records, RanAt: s.now()}
		st.Notice = "Found " + strconv.Itoa(len(records)) + " results."
	})
	c.Redirect(http.StatusSeeOther, "/semantic")
}

func (s *Server) handleSemanticAnalyzeForm(c *gin.Context) {
	id := sessionID(c)
	st := s.deps.Sessions.Get(id)
	if st.Semantic == nil || len(st.Semantic.Records) == 0 {
		s.flashError(c, id, "/semantic", "Run a semantic search with results before analyzing.")
		return
	}
	res := st.Semantic
	text, err := s.analyze(c, res.Query.Query, res.Records, "")
	if err != nil {
		s.flashError(c, id, "/semantic", "Analysis failed: "+describeError(err))
		return
	}
	s.deps.Sessions.Update(id, func(st *session.State) {
		// Only attach the analysis to the search it was produced for.
		if st.Semantic != nil && st.Semantic.RanAt.Equal(res.RanAt) {
			st.Semantic.Analysis = text
		}
	})
	c.Redirect(http.StatusSeeOther, "/semantic")
}

func (s *Server) handleEnableForm(c *gin.Context) {
	res, err := s.deps.Admin.EnableSearchOptimization(c.Request.Context())
	s.finishAdminForm(c, res, err)
}

func (s *Server) handleDisableForm(c *gin.Context) {
	res, err := s.deps.Admin.DisableSearchOptimization(c.Request.Context())
	s.finishAdminForm(c, res, err)
}

func (s *Server) handleResizeForm(c *gin.Context) {
	var form adminSizeForm
	if err := c.ShouldBind(&form); err != nil {
		s.flashError(c, sessionID(c), safeRedirect(c.PostForm("redirect"), "/"), "Choose a warehouse size.")
		return
	}
	res, err := s.deps.Admin.Resize(c.Request.Context(), form.Size)
	s.finishAdminForm(c, res, err)
}

func (s *Server) finishAdminForm(c *gin.Context, res model.AdminResult, err error) {
	id := sessionID(c)
	target := safeRedirect(c.PostForm("redirect"), "/")
	if err != nil {
		s.flashError(c, id, target, describeError(err))
		return
	}
	s.deps.Sessions.Update(id, func(st *session.State) {
		st.Notice = res.Message
	})
	c.Redirect(http.StatusSeeOther, target)
}

func (s *Server) flashError(c *gin.Context, id, target, msg string) {
	s.deps.Sessions.Update(id, func(st *session.State) {
		st.Error = msg
	})
	c.Redirect(http.StatusSeeOther, target)
}
