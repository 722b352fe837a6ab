// Package backend talks to the storage and user services. It knows nothing
// about orders or slots; it moves bytes and decodes JSON.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/sort-storage/admin/internal/metrics"
)

// ErrUnavailable wraps transport failures: refused connections, timeouts,
// oversized bodies.
var ErrUnavailable = errors.New("upstream unavailable")

const DefaultMaxBodyBytes = 10 << 20

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

type Request struct {
	Method   string
	Path     string
	RawQuery string
	Body     []byte
	Token    string
}

type Response struct {
	Status      int
	Body        []byte
	ContentType string
}

type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	// RetryDelay is the pause before the single GET retry.
	RetryDelay time.Duration
	HTTPClient *http.Client
}

type Client struct {
	name       string
	baseURL    string
	http       *http.Client
	maxBody    int64
	retryDelay time.Duration
}

// New creates a client for one upstream. name labels metrics and errors.
func New(name, baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       hc,
		maxBody:    maxBody,
		retryDelay: delay,
	}
}

func (c *Client) Name() string { return c.name }

// Forward performs the request and returns whatever the upstream answered.
// Non-2xx statuses are not errors here; only transport failures are. GET
// requests are retried once on transport errors and 5xx answers, and the
// last answer is returned either way.
func (c *Client) Forward(ctx context.Context, req Request) (*Response, error) {
	if req.Method != http.MethodGet {
		return c.do(ctx, req)
	}

	var resp *Response
	err := retry.Do(
		func() error {
			r, err := c.do(ctx, req)
			if err != nil {
				return err
			}
			resp = r
			if r.Status >= http.StatusInternalServerError {
				return &StatusError{Status: r.Status}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
	)
	if resp != nil && resp.Status >= http.StatusInternalServerError {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	target := c.baseURL + req.Path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.name, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveUpstream(c.name, req.Method, 0, time.Since(start))
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBody+1))
	metrics.ObserveUpstream(c.name, req.Method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s body: %v", ErrUnavailable, c.name, err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("%w: %s response exceeds %d bytes", ErrUnavailable, c.name, c.maxBody)
	}

	return &Response{
		Status:      httpResp.StatusCode,
		Body:        data,
		ContentType: httpResp.Header.Get("Content-Type"),
	}, nil
}

// --- Typed JSON helpers ---

// GetJSON fetches path and decodes a 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, token, path string, query url.Values, out any) error {
	req := Request{Method: http.MethodGet, Path: path, Token: token}
	if len(query) > 0 {
		req.RawQuery = query.Encode()
	}
	return c.exchange(ctx, req, out)
}

// SendJSON encodes in as the request body (when non-nil) and decodes a 2xx
// answer into out (when non-nil).
func (c *Client) SendJSON(ctx context.Context, token, method, path string, in, out any) error {
	req := Request{Method: method, Path: path, Token: token}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		req.Body = data
	}
	return c.exchange(ctx, req, out)
}

func (c *Client) exchange(ctx context.Context, req Request, out any) error {
	resp, err := c.Forward(ctx, req)
	if err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return &StatusError{Status: resp.Status, Message: errorMessage(resp.Body)}
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", c.name, req.Path, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

// Path joins escaped segments onto a fixed prefix.
func Path(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
