// Package upstream is the HTTP client for a remote maziwa server. It
// satisfies the same read interfaces as the stores, so the aggregation
// engine, the cache and the directory pager run unchanged on the client side.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	httperr "github.com/jolla3/maziwa-smart-sub000/internal/core/errors"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/jolla3/maziwa-smart-sub000/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 16 << 20
)

// ErrUnavailable wraps network failures, timeouts, 429 and 5xx answers.
var ErrUnavailable = errors.New("upstream unavailable")

// StatusError is a 4xx answer the client does not map to a value.
type StatusError struct {
	StatusCode int
	ErrorType  string
	Message    string
}

func (e *StatusError) Error() string {
	if e.ErrorType == "" {
		return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream returned %d %s: %s", e.StatusCode, e.ErrorType, e.Message)
}

// Config configures a Client. RateLimit is requests per second; 0 disables limiting.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	HTTPClient *http.Client
}

type Client struct {
	baseURL *url.URL
	token   string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	c := &Client{baseURL: u, token: cfg.Token, timeout: cfg.Timeout, http: cfg.HTTPClient}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}
	return c, nil
}

// Record posts one collection. Created, updated and rejected writes all come
// back as a RecordResult with a nil error.
func (c *Client) Record(ctx context.Context, req v1.RecordRequest) (v1.RecordResult, error) {
	var res v1.RecordResult
	err := c.do(ctx, "record", http.MethodPost, "/v1/collection-events", nil, req,
		func(status int, body []byte) error {
			switch status {
			case http.StatusOK, http.StatusCreated, http.StatusConflict, http.StatusUnprocessableEntity:
				return json.Unmarshal(body, &res)
			}
			return statusError(status, body)
		})
	return res, err
}

// ListEvents implements aggregation.EventSource.
func (c *Client) ListEvents(ctx context.Context, filter storage.EventFilter) ([]*v1.CollectionEvent, error) {
	var out []*v1.CollectionEvent
	err := c.do(ctx, "list_events", http.MethodGet, "/v1/collection-events", filterQuery(filter), nil,
		func(status int, body []byte) error {
			if status != http.StatusOK {
				return statusError(status, body)
			}
			rows, _, err := decodeList[v1.CollectionEvent](body)
			if err != nil {
				return err
			}
			out = make([]*v1.CollectionEvent, len(rows))
			for i := range rows {
				out[i] = &rows[i]
			}
			return nil
		})
	return out, err
}

// MaxRevision implements aggregation.EventSource.
func (c *Client) MaxRevision(ctx context.Context, filter storage.EventFilter) (int64, error) {
	var res v1.RevisionResponse
	err := c.do(ctx, "max_revision", http.MethodGet, "/v1/collection-events/revision", filterQuery(filter), nil,
		func(status int, body []byte) error {
			if status != http.StatusOK {
				return statusError(status, body)
			}
			return json.Unmarshal(body, &res)
		})
	return res.MaxRevision, err
}

// ListDirectory implements directory.Source.
func (c *Client) ListDirectory(ctx context.Context, q storage.DirectoryQuery) (v1.Page, error) {
	params := url.Values{}
	params.Set("kind", string(q.Kind))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("page_size", strconv.Itoa(q.PageSize))
	if q.Filter != "" {
		params.Set("filter", q.Filter)
	}

	var page v1.Page
	err := c.do(ctx, "list_directory", http.MethodGet, "/v1/directory", params, nil,
		func(status int, body []byte) error {
			if status != http.StatusOK {
				return statusError(status, body)
			}
			rows, total, err := decodeList[v1.Party](body)
			if err != nil {
				return err
			}
			page = v1.Page{Items: rows, TotalCount: total}
			if page.Items == nil {
				page.Items = []v1.Party{}
			}
			return nil
		})
	return page, err
}

func (c *Client) do(
	ctx context.Context,
	op, method, path string,
	query url.Values,
	body any,
	handle func(status int, body []byte) error,
) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.UpstreamRequests.WithLabelValues(op, "rate_limited").Inc()
			return fmt.Errorf("%w: %s: rate limit wait: %w", ErrUnavailable, op, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%w: %s: reading body: %w", ErrUnavailable, op, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		metrics.UpstreamRequests.WithLabelValues(op, "unavailable").Inc()
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, statusError(resp.StatusCode, data))
	}

	if err := handle(resp.StatusCode, data); err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "rejected").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func statusError(status int, body []byte) error {
	var resp httperr.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Message == "" {
		raw := string(body)
		if len(raw) > 200 {
			raw = raw[:200] + "..."
		}
		return &StatusError{StatusCode: status, Message: strings.TrimSpace(raw)}
	}
	return &StatusError{StatusCode: status, ErrorType: resp.ErrorType, Message: resp.Message}
}

func filterQuery(f storage.EventFilter) url.Values {
	q := url.Values{}
	if f.ProducerID != "" {
		q.Set("producer_id", f.ProducerID)
	}
	if f.CollectorID != "" {
		q.Set("collector_id", f.CollectorID)
	}
	if f.Slot != "" {
		q.Set("slot", string(f.Slot))
	}
	if !f.Start.IsZero() {
		q.Set("start", f.Start.Format(time.RFC3339Nano))
	}
	if !f.End.IsZero() {
		q.Set("end", f.End.Format(time.RFC3339Nano))
	}
	return q
}
