package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tinytelemetry/logsearch/internal/admin"
	"github.com/tinytelemetry/logsearch/internal/duckdb"
	"github.com/tinytelemetry/logsearch/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var t0 = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

type fakeSemantic struct {
	got     []model.SemanticQuery
	records []model.LogRecord
	err     error
}

func (f *fakeSemantic) Search(_ context.Context, q model.SemanticQuery) ([]model.LogRecord, error) {
	f.got = append(f.got, q)
	return f.records, f.err
}

type fakeCompleter struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeStatus struct{}

func (fakeStatus) ServiceStatus(context.Context) (model.ServiceStatus, error) {
	return model.ServiceStatus{ServingState: "ACTIVE", IndexedRows: 42}, nil
}

func sampleRecords() []model.LogRecord {
	return []model.LogRecord{
		{LogID: "a1", Timestamp: t0, Severity: "ERROR", Source: "api", Host: "web-1", Message: "db timeout after 500ms"},
		{LogID: "a2", Timestamp: t0.Add(time.Minute), Severity: "WARN", Source: "api", Host: "web-2", Message: "retry attempt 2"},
		{LogID: "a3", Timestamp: t0.Add(2 * time.Minute), Severity: "INFO", Source: "worker", Host: "job-1", Message: "job done status=ok"},
	}
}

func newTestServer(t *testing.T, configure ...func(*Deps)) (*Server, http.Handler) {
	t.Helper()
	store, err := duckdb.NewStore(context.Background(), "", nil, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	_, err = store.InsertLogBatch(context.Background(), sampleRecords())
	require.NoError(t, err)

	local := duckdb.NewLocalAdmin(store, "", "")
	deps := Deps{
		Backend: "duckdb",
		Logs:    store,
		Admin:   admin.NewService(local, local, "", nil),
	}
	for _, fn := range configure {
		fn(&deps)
	}

	srv, err := NewServer("", deps)
	require.NoError(t, err)
	srv.now = func() time.Time { return t0.Add(time.Hour) }
	return srv, srv.Handler()
}

type client struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	if got := w.Result().Cookies(); len(got) > 0 {
		c.cookies = got
	}
	return w
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (c *client) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) sendJSON(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealthEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	w := c.get("/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "duckdb", body["backend"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	schema, ok := body["schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), schema["pending"])
	assert.Equal(t, schema["latest"], schema["current"])
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	w := c.sendJSON(http.MethodPost, "/api/health", "{}")
	assert.Contains(t, []int{http.StatusMethodNotAllowed, http.StatusNotFound}, w.Code)
}

func TestSourcesCountPreview(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	body := decode(t, c.get("/api/sources"))
	assert.Equal(t, []any{"api", "worker"}, body["sources"])

	body = decode(t, c.get("/api/logs/count"))
	assert.EqualValues(t, 3, body["count"])

	body = decode(t, c.get("/api/logs/preview?limit=2"))
	assert.Len(t, body["records"], 2)

	body = decode(t, c.get("/api/logs/preview?limit=999999"))
	assert.EqualValues(t, model.MaxPreviewLimit, body["limit"])

	w := c.get("/api/logs/preview?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKeywordSearchAPI(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	w := c.sendJSON(http.MethodPost, "/api/keyword/search", `{"query":"timeout","range":"24h"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	records := body["records"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, "a1", records[0].(map[string]any)["log_id"])
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["total"])
}

func TestKeywordSearchAPI_Selections(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	// Absent lists select everything.
	body := decode(t, c.sendJSON(http.MethodPost, "/api/keyword/search", `{}`))
	assert.Len(t, body["records"], 3)

	// An empty list selects nothing.
	body = decode(t, c.sendJSON(http.MethodPost, "/api/keyword/search", `{"severities":[]}`))
	assert.Len(t, body["records"], 0)

	body = decode(t, c.sendJSON(http.MethodPost, "/api/keyword/search", `{"sources":["worker"]}`))
	assert.Len(t, body["records"], 1)

	body = decode(t, c.sendJSON(http.MethodPost, "/api/keyword/search", `{"severities":["error","warn"],"sources":["api","worker"]}`))
	assert.Len(t, body["records"], 2)
}

func TestKeywordSearchAPI_BadRequests(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	for _, body := range []string{
		`{"mode":"FUZZY"}`,
		`{"range":"2w"}`,
		`{"range":"custom","start":"2025-03-05","end":"2025-03-01"}`,
		`{"limit":-1}`,
		`not json`,
	} {
		w := c.sendJSON(http.MethodPost, "/api/keyword/search", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.NotEmpty(t, decode(t, w)["error"], body)
	}
}

func TestSemanticAPINotConfigured(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	w := c.sendJSON(http.MethodPost, "/api/semantic/search", `{"query":"db errors"}`)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = c.sendJSON(http.MethodPost, "/api/semantic/analyze", `{"query":"db errors"}`)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = c.get("/api/semantic/status")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestSemanticSearchAPI(t *testing.T) {
	sem := &fakeSemantic{records: sampleRecords()[:2]}
	_, h := newTestServer(t, func(d *Deps) {
		d.Semantic = sem
		d.Status = fakeStatus{}
	})
	c := &client{t: t, h: h}

	w := c.sendJSON(http.MethodPost, "/api/semantic/search", `{"query":"  slow database ","severities":["ERROR"],"limit":5000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["records"], 2)
	require.Len(t, sem.got, 1)
	assert.Equal(t, "slow database", sem.got[0].Query)
	assert.Equal(t, model.MaxSemanticLimit, sem.got[0].Limit)
	assert.Equal(t, []string{"ERROR"}, sem.got[0].Severities)

	w = c.sendJSON(http.MethodPost, "/api/semantic/search", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, sem.got, 1)

	body := decode(t, c.get("/api/semantic/status"))
	assert.Equal(t, "ACTIVE", body["serving_state"])
	assert.EqualValues(t, 42, body["indexed_rows"])

	sem.err = errors.New("service unavailable")
	w = c.sendJSON(http.MethodPost, "/api/semantic/search", `{"query":"db"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "service unavailable")
}

func TestSemanticAnalyzeAPI(t *testing.T) {
	sem := &fakeSemantic{records: sampleRecords()[:1]}
	comp := &fakeCompleter{reply: "The database is slow."}
	_, h := newTestServer(t, func(d *Deps) {
		d.Semantic = sem
		d.Completer = comp
	})
	c := &client{t: t, h: h}

	w := c.sendJSON(http.MethodPost, "/api/semantic/analyze", `{"query":"db timeouts","language":"German"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "The database is slow.", decode(t, w)["analysis"])
	require.Len(t, comp.prompts, 1)
	assert.Contains(t, comp.prompts[0], "[ERROR] 2025-03-04 10:00:00 | api | web-1 | db timeout after 500ms")
	assert.Contains(t, comp.prompts[0], "German")
}

func TestAdminIndexAPI(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	body := decode(t, c.get("/api/admin/search-optimization"))
	assert.Equal(t, false, body["enabled"])

	body = decode(t, c.sendJSON(http.MethodPost, "/api/admin/search-optimization", ""))
	assert.Equal(t, true, body["changed"])
	body = decode(t, c.sendJSON(http.MethodPost, "/api/admin/search-optimization", ""))
	assert.Equal(t, false, body["changed"])

	body = decode(t, c.get("/api/admin/search-optimization"))
	assert.Equal(t, true, body["enabled"])
	assert.Equal(t, true, body["ready"])

	body = decode(t, c.sendJSON(http.MethodDelete, "/api/admin/search-optimization", ""))
	assert.Equal(t, true, body["changed"])
	body = decode(t, c.sendJSON(http.MethodDelete, "/api/admin/search-optimization", ""))
	assert.Equal(t, false, body["changed"])
}

func TestAdminWarehouseAPI(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	body := decode(t, c.get("/api/admin/warehouse"))
	assert.Equal(t, "SEARCH_WH", body["name"])
	assert.Equal(t, "X-Small", body["size"])
	assert.Len(t, body["sizes"], len(admin.WarehouseSizes()))

	body = decode(t, c.sendJSON(http.MethodPut, "/api/admin/warehouse", `{"size":"medium"}`))
	assert.Equal(t, true, body["changed"])
	body = decode(t, c.sendJSON(http.MethodPut, "/api/admin/warehouse", `{"size":"Medium"}`))
	assert.Equal(t, false, body["changed"])

	w := c.sendJSON(http.MethodPut, "/api/admin/warehouse", `{"size":"huge"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.sendJSON(http.MethodPut, "/api/admin/warehouse", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminNotConfigured(t *testing.T) {
	_, h := newTestServer(t, func(d *Deps) { d.Admin = nil })
	c := &client{t: t, h: h}

	assert.Equal(t, http.StatusNotImplemented, c.get("/api/admin/search-optimization").Code)
	assert.Equal(t, http.StatusNotImplemented, c.get("/api/admin/warehouse").Code)

	// The page still renders with the panels reporting the problem.
	w := c.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Not configured for this backend.")
}

func TestAdminAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	_, h := newTestServer(t, func(d *Deps) {
		d.AdminUser = "ops"
		d.AdminPasswordHash = string(hash)
	})
	c := &client{t: t, h: h}

	w := c.sendJSON(http.MethodPost, "/api/admin/search-optimization", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/search-optimization", nil)
	req.SetBasicAuth("ops", "wrong")
	assert.Equal(t, http.StatusUnauthorized, c.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/search-optimization", nil)
	req.SetBasicAuth("ops", "s3cret")
	assert.Equal(t, http.StatusOK, c.do(req).Code)

	// Reads stay open.
	assert.Equal(t, http.StatusOK, c.get("/api/admin/search-optimization").Code)
	w = c.postForm("/admin/warehouse/size", url.Values{"size": {"SMALL"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestKeywordPage(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	w := c.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	page := w.Body.String()
	assert.Contains(t, page, "Total records: <strong>3</strong>")
	assert.Contains(t, page, "Raw data preview")
	assert.NotContains(t, page, "<h2>Events</h2>")
	require.NotEmpty(t, c.cookies)

	w = c.get("/?search=1&filters=1&srcfilters=1&q=timeout&range=24h&sev=ERROR&sev=WARN&src=api&src=worker")
	require.Equal(t, http.StatusOK, w.Code)
	page = w.Body.String()
	assert.Contains(t, page, "<h2>Events</h2>")
	assert.Contains(t, page, "db timeout after 500ms")
	assert.Contains(t, page, "Page 1 of 1 (1 events)")

	// Results survive a reload without re-running the search.
	w = c.get("/?page=1")
	assert.Contains(t, w.Body.String(), "Page 1 of 1 (1 events)")
}

func TestKeywordPageEmptySelectionMatchesNothing(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	w := c.get("/")
	assert.Contains(t, w.Body.String(), `name="srcfilters"`)

	w = c.get("/?search=1&filters=1&srcfilters=1&range=24h&sev=ERROR&sev=WARN&sev=INFO")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Page 1 of 1 (0 events)")
}

type failingSources struct {
	model.LogSearcher
}

func (failingSources) DistinctSources(context.Context) ([]string, error) {
	return nil, errors.New("sources unavailable")
}

func TestKeywordPageWithoutSourceList(t *testing.T) {
	_, h := newTestServer(t, func(d *Deps) { d.Logs = failingSources{d.Logs} })
	c := &client{t: t, h: h}

	w := c.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	page := w.Body.String()
	assert.Contains(t, page, "sources unavailable")
	assert.NotContains(t, page, `name="src"`)
	assert.NotContains(t, page, `name="srcfilters"`)

	// The browser submits only the groups it rendered.
	w = c.get("/?search=1&filters=1&range=24h&sev=FATAL&sev=ERROR&sev=WARN&sev=INFO&sev=DEBUG")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Page 1 of 1 (3 events)")
}

func TestKeywordPageErrorKeepsResults(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	c.get("/?search=1&range=24h")
	w := c.get("/?search=1&range=custom&start=2025-03-05&end=2025-03-01")
	require.Equal(t, http.StatusOK, w.Code)
	page := w.Body.String()
	assert.Contains(t, page, "Search failed")
	assert.Contains(t, page, "(3 events)")
}

func TestSemanticPageFlow(t *testing.T) {
	sem := &fakeSemantic{records: sampleRecords()}
	comp := &fakeCompleter{reply: "Root cause: slow database."}
	_, h := newTestServer(t, func(d *Deps) {
		d.Semantic = sem
		d.Completer = comp
		d.Status = fakeStatus{}
	})
	c := &client{t: t, h: h}

	w := c.get("/semantic")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ACTIVE")

	w = c.postForm("/semantic/search", url.Values{"query": {"db problems"}, "sev": {"ERROR"}, "limit": {"20"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/semantic", w.Header().Get("Location"))
	require.Len(t, sem.got, 1)
	assert.Equal(t, 20, sem.got[0].Limit)

	page := c.get("/semantic").Body.String()
	assert.Contains(t, page, "Found 3 results.")
	assert.Contains(t, page, "db timeout after 500ms")

	w = c.postForm("/semantic/analyze", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	page = c.get("/semantic").Body.String()
	assert.Contains(t, page, "Root cause: slow database.")

	// A failed search keeps the previous results and analysis.
	sem.err = errors.New("boom")
	c.postForm("/semantic/search", url.Values{"query": {"other"}})
	page = c.get("/semantic").Body.String()
	assert.Contains(t, page, "Semantic search failed: boom")
	assert.Contains(t, page, "Root cause: slow database.")
}

func TestSemanticAnalyzeWithoutResults(t *testing.T) {
	_, h := newTestServer(t, func(d *Deps) { d.Completer = &fakeCompleter{} })
	c := &client{t: t, h: h}

	w := c.postForm("/semantic/analyze", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, c.get("/semantic").Body.String(), "Run a semantic search with results before analyzing.")
}

func TestAdminForms(t *testing.T) {
	_, h := newTestServer(t)
	c := &client{t: t, h: h}

	w := c.postForm("/admin/search-optimization/enable", url.Values{"redirect": {"/semantic"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/semantic", w.Header().Get("Location"))
	assert.Contains(t, c.get("/semantic").Body.String(), "Search optimization enabled.")

	w = c.postForm("/admin/warehouse/size", url.Values{"size": {"LARGE"}, "redirect": {"//evil.example"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	page := c.get("/").Body.String()
	assert.Contains(t, page, "resized to Large")
	assert.Contains(t, page, "<strong>Large</strong>")

	c.postForm("/admin/warehouse/size", url.Values{"size": {"enormous"}})
	assert.Contains(t, c.get("/").Body.String(), "unknown warehouse size")
}

func TestGzipResponses(t *testing.T) {
	_, h := newTestServer(t, func(d *Deps) { d.Gzip = true })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(badRequest("x")))
	assert.Equal(t, http.StatusBadRequest, statusFor(&admin.ValidationError{Err: errors.New("x")}))
	assert.Equal(t, http.StatusNotImplemented, statusFor(model.ErrNotConfigured))
	assert.Equal(t, http.StatusNotImplemented, statusFor(model.ErrUnsupported))
	assert.Equal(t, http.StatusNotFound, statusFor(model.ErrWarehouseNotFound))
	assert.Equal(t, http.StatusBadGateway, statusFor(errors.New("upstream")))
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/semantic", safeRedirect("/semantic", "/"))
	assert.Equal(t, "/", safeRedirect("//evil.example", "/"))
	assert.Equal(t, "/", safeRedirect("https://evil.example", "/"))
	assert.Equal(t, "/", safeRedirect("", "/"))
}

func TestKeywordFormSelections(t *testing.T) {
	sev, src := keywordForm{}.selections()
	assert.Nil(t, sev)
	assert.Nil(t, src)

	sev, src = keywordForm{Filters: true, SourceFilters: true}.selections()
	assert.NotNil(t, sev)
	assert.Empty(t, sev)
	assert.NotNil(t, src)
	assert.Empty(t, src)

	sev, src = keywordForm{Filters: true}.selections()
	assert.NotNil(t, sev)
	assert.Nil(t, src)
}

type fakeSources []string

func (f fakeSources) DistinctSources(context.Context) ([]string, error) { return f, nil }

func TestSemanticPageUsesIndexedSources(t *testing.T) {
	_, h := newTestServer(t, func(d *Deps) { d.SemanticSources = fakeSources{"billing-svc"} })
	c := &client{t: t, h: h}

	page := c.get("/semantic").Body.String()
	assert.Contains(t, page, `value="billing-svc"`)
	assert.NotContains(t, page, `name="src" value="worker"`)
}
