package cortex

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/snowflake"
)

const servicePath = "/api/v2/databases/LOG_SEARCH_APP/schemas/PUBLIC/cortex-search-services/LOG_SEMANTIC_SEARCH:query"

type captured struct {
	path      string
	auth      string
	tokenType string
	body      map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		got.tokenType = r.Header.Get(tokenTypeHeader)
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func testConfig(base string) Config {
	return Config{
		BaseURL:  base,
		Account:  "acme-xy123",
		User:     "svc_user",
		Token:    "pat-123",
		Database: "LOG_SEARCH_APP",
		Schema:   "PUBLIC",
		Service:  "LOG_SEMANTIC_SEARCH",
	}
}

const okResponse = `{"results":[
	{"LOG_ID":"42","TIMESTAMP":"2025-03-04 10:20:30.123","SEVERITY":"error","SOURCE":"api","HOST":"web-1","MESSAGE":"db timeout"},
	{"LOG_ID":7,"TIMESTAMP":null,"SEVERITY":"INFO","SOURCE":"worker","HOST":"job-1","MESSAGE":"ok"}
],"request_id":"abc"}`

func TestSearch(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK, okResponse)
	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	records, err := c.Search(context.Background(), model.SemanticQuery{
		Query:      "  database slowness ",
		Severities: []string{"ERROR"},
		Sources:    []string{"api", "worker"},
		Limit:      5000,
	})
	require.NoError(t, err)

	assert.Equal(t, servicePath, got.path)
	assert.Equal(t, "Bearer pat-123", got.auth)
	assert.Equal(t, tokenTypePAT, got.tokenType)
	assert.Equal(t, "database slowness", got.body["query"])
	assert.Equal(t, float64(1000), got.body["limit"])
	assert.Len(t, got.body["columns"], 6)
	filter, ok := got.body["filter"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, filter, "@and")

	require.Len(t, records, 2)
	assert.Equal(t, "42", records[0].LogID)
	assert.Equal(t, "ERROR", records[0].Severity)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 20, 30, 123000000, time.UTC), records[0].Timestamp)
	assert.Equal(t, "7", records[1].LogID)
	assert.True(t, records[1].Timestamp.IsZero())
}

func TestSearchOmitsEmptyFilter(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK, `{"results":[]}`)
	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	records, err := c.Search(context.Background(), model.SemanticQuery{Query: "x"})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotContains(t, got.body, "filter")
	assert.Equal(t, float64(10), got.body["limit"])
}

func TestSearchEmptyQuerySendsNothing(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK, `{"results":[]}`)
	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), model.SemanticQuery{Query: "   "})
	assert.Error(t, err)
	assert.Empty(t, got.path)
}

func TestSearchErrorStatus(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusForbidden, `{"code":"390303","message":"Invalid OAuth access token."}`)
	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), model.SemanticQuery{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "Invalid OAuth access token.")
}

func TestSearchMalformedResponse(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"results": [`)
	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), model.SemanticQuery{Query: "x"})
	assert.Error(t, err)
}

func TestNewClientValidation(t *testing.T) {
	cfg := testConfig("")
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.endpoint, "https://acme-xy123.snowflakecomputing.com/api/v2/"))

	cfg = testConfig("http://x")
	cfg.Token = ""
	_, err = NewClient(cfg, nil)
	assert.Error(t, err)

	cfg = testConfig("http://x")
	cfg.Service = "bad/service"
	_, err = NewClient(cfg, nil)
	assert.Error(t, err)
}

func TestKeyPairJWT(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv, got := newTestServer(t, http.StatusOK, `{"results":[]}`)
	cfg := testConfig(srv.URL)
	cfg.Token = ""
	cfg.Account = "acme-xy123.us-east-1"
	cfg.PrivateKey = key
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), model.SemanticQuery{Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, tokenTypeJWT, got.tokenType)

	raw := strings.TrimPrefix(got.auth, "Bearer ")
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return &key.PublicKey, nil },
		jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)

	fp, err := snowflake.Fingerprint(key)
	require.NoError(t, err)
	assert.Equal(t, "ACME-XY123.SVC_USER."+fp, claims.Issuer)
	assert.Equal(t, "ACME-XY123.SVC_USER", claims.Subject)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestJWTCaching(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	a, err := newJWTAuth("acme", "user", key)
	require.NoError(t, err)

	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	first, _, err := a.token(now)
	require.NoError(t, err)

	again, _, err := a.token(now.Add(30 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first, again)

	refreshed, _, err := a.token(now.Add(56 * time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, first, refreshed)
}
