// Package cortex queries a Cortex Search service over the Snowflake REST API.
package cortex

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/tinytelemetry/logsearch/internal/logparse"
	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/query"
)

// Config addresses one search service.
type Config struct {
	// BaseURL defaults to https://<account>.snowflakecomputing.com.
	BaseURL    string
	Account    string
	User       string
	Token      string
	PrivateKey *rsa.PrivateKey
	Database   string
	Schema     string
	Service    string
	Timeout    time.Duration
}

// Client implements model.SemanticSearcher.
type Client struct {
	endpoint string
	auth     authenticator
	http     *http.Client
	parser   fastjson.ParserPool
	logger   *zap.Logger
	now      func() time.Time
}

var _ model.SemanticSearcher = (*Client)(nil)

// NewClient validates cfg and picks key-pair auth when a private key is set.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, name := range []string{cfg.Database, cfg.Schema, cfg.Service} {
		if !query.ValidIdentifier(name) {
			return nil, fmt.Errorf("invalid search service identifier %q", name)
		}
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		if cfg.Account == "" {
			return nil, fmt.Errorf("cortex base url or account is required")
		}
		base = "https://" + strings.ToLower(cfg.Account) + ".snowflakecomputing.com"
	}

	var auth authenticator
	switch {
	case cfg.PrivateKey != nil:
		if cfg.Account == "" || cfg.User == "" {
			return nil, fmt.Errorf("key-pair auth needs account and user")
		}
		ja, err := newJWTAuth(cfg.Account, cfg.User, cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		auth = ja
	case cfg.Token != "":
		auth = patAuth{pat: cfg.Token}
	default:
		return nil, fmt.Errorf("cortex credentials missing: set a token or private key")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = model.DefaultQueryTimeout
	}

	return &Client{
		endpoint: fmt.Sprintf("%s/api/v2/databases/%s/schemas/%s/cortex-search-services/%s:query",
			base, url.PathEscape(cfg.Database), url.PathEscape(cfg.Schema), url.PathEscape(cfg.Service)),
		auth:   auth,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
		now:    time.Now,
	}, nil
}

// Search runs q against the service. An empty query is rejected without a request.
func (c *Client) Search(ctx context.Context, q model.SemanticQuery) ([]model.LogRecord, error) {
	req, ok := query.BuildSemanticRequest(q)
	if !ok {
		return nil, fmt.Errorf("empty semantic query")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	token, tokenType, err := c.auth.token(c.now())
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set(tokenTypeHeader, tokenType)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cortex search: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read cortex response: %w", err)
	}

	c.logger.Debug("cortex search",
		zap.Int("status", resp.StatusCode),
		zap.Int("limit", req.Limit),
		zap.Bool("filtered", req.Filter != nil),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cortex search: %s: %s", resp.Status, c.errorMessage(data))
	}
	return c.parseResults(data)
}

func (c *Client) parseResults(data []byte) ([]model.LogRecord, error) {
	p := c.parser.Get()
	defer c.parser.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse cortex response: %w", err)
	}

	results := v.GetArray("results")
	records := make([]model.LogRecord, 0, len(results))
	for _, r := range results {
		rec := model.LogRecord{
			LogID:    text(r.Get("LOG_ID")),
			Severity: logparse.NormalizeSeverity(text(r.Get("SEVERITY"))),
			Source:   text(r.Get("SOURCE")),
			Host:     text(r.Get("HOST")),
			Message:  text(r.Get("MESSAGE")),
		}
		if raw := text(r.Get("TIMESTAMP")); raw != "" {
			if ts, err := logparse.ParseTimestamp(raw); err == nil {
				rec.Timestamp = ts
			} else {
				c.logger.Debug("unparsed result timestamp", zap.String("raw", raw))
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// errorMessage pulls "message" out of a REST error body, falling back to the raw text.
func (c *Client) errorMessage(data []byte) string {
	p := c.parser.Get()
	defer c.parser.Put(p)

	if v, err := p.ParseBytes(data); err == nil {
		if msg := text(v.Get("message")); msg != "" {
			return msg
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}

func text(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNull:
		return ""
	default:
		return v.String()
	}
}
