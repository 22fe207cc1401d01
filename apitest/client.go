// Package apitest provides a thin client for driving HTTP APIs from Go
// tests. A Client resolves endpoints against a base URL, applies default and
// per-call headers, dispatches through an injected transport, and returns
// fully buffered responses that verification helpers can assert against.
//
// The client deliberately adds no retry, timeout, or status interpretation:
// a 4xx/5xx response is returned like any other, and transport failures
// propagate to the caller unchanged. Cancellation and deadlines belong to the
// context and the injected transport.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kuitang/webprobe/internal/errs"
	"github.com/kuitang/webprobe/internal/logutil"
	"github.com/kuitang/webprobe/internal/obs"
)

const logBodyMaxBytes = 2048

// Doer executes a single HTTP round trip. *http.Client satisfies it. The
// client never owns or reconfigures the transport it is given.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues requests against a base URL with a mutable set of default
// headers. The base URL is fixed at construction; targeting a different host
// requires a new Client.
//
// Concurrent requests from one Client are safe: each call snapshots the
// default headers under a lock. Mutating defaults concurrently with in-flight
// calls is not synchronized beyond that snapshot — keep setter calls in test
// setup, not in parallel workers.
type Client struct {
	baseURL   string
	transport Doer

	mu       sync.Mutex
	defaults map[string]string
}

// NewClient creates a client for the given transport and base URL. The base
// URL may be empty (endpoints are then absolute URLs); no validation is
// performed — a malformed base surfaces when the transport rejects it.
// Content-Type and Accept default to application/json until overridden.
func NewClient(transport Doer, baseURL string) *Client {
	return &Client{
		baseURL:   baseURL,
		transport: transport,
		defaults: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
}

// SetDefaultHeaders merges headers into the default set; incoming keys win on
// collision. Keys match literally (case-sensitive), so overrides must use the
// same casing as the defaults they replace. There is no removal operation —
// construct a fresh client to drop a header.
func (c *Client) SetDefaultHeaders(headers map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range headers {
		c.defaults[k] = v
	}
}

// SetAuthToken sets the Authorization default header to "Bearer <token>".
// Other defaults are untouched. The token is not validated; an empty token
// produces the literal value "Bearer ".
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults["Authorization"] = "Bearer " + token
}

// Get issues a GET request to baseURL+endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...Option) (*Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, opts)
}

// Post issues a POST request with the given body (see encodeBody for accepted
// shapes).
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts ...Option) (*Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, opts)
}

// Put issues a PUT request with the given body.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts ...Option) (*Response, error) {
	return c.do(ctx, http.MethodPut, endpoint, body, opts)
}

// Patch issues a PATCH request with the given body.
func (c *Client) Patch(ctx context.Context, endpoint string, body any, opts ...Option) (*Response, error) {
	return c.do(ctx, http.MethodPatch, endpoint, body, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...Option) (*Response, error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil, opts)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, opts []Option) (*Response, error) {
	ro := &requestOptions{}
	for _, opt := range opts {
		opt(ro)
	}

	rawURL := c.baseURL + endpoint
	if qs := ro.params.Encode(); qs != "" {
		rawURL += "?" + qs
	}

	reader, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}

	headers := c.snapshotDefaults()
	for k, v := range ro.headers {
		headers[k] = v
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	log := obs.Pkg("apitest")
	reqID := obs.NewRequestID()
	log.Debug("request",
		"request_id", reqID,
		"method", method,
		"url", rawURL,
		"headers", logutil.FormatHeadersForLog(req.Header),
	)

	start := time.Now()
	res, err := c.transport.Do(req)
	if err != nil {
		// Transport failures propagate unchanged; no classification here.
		return nil, err
	}
	elapsed := time.Since(start)

	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	log.Debug("response",
		"request_id", reqID,
		"status", res.StatusCode,
		"elapsed_ms", elapsed.Milliseconds(),
		"body", logutil.FormatBodyForLog(res.Header.Get("Content-Type"), raw, logBodyMaxBytes),
	)

	return &Response{
		status:  res.StatusCode,
		header:  res.Header,
		body:    raw,
		elapsed: elapsed,
	}, nil
}

func (c *Client) snapshotDefaults() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make(map[string]string, len(c.defaults))
	for k, v := range c.defaults {
		snapshot[k] = v
	}
	return snapshot
}

// encodeBody converts a request payload into a reader. nil means no body;
// []byte, string, and io.Reader pass through untouched; anything else is
// JSON-encoded.
func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "encode request body", err)
		}
		return bytes.NewReader(raw), nil
	}
}
