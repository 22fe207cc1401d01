package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/webprobe/internal/errs"
	"github.com/kuitang/webprobe/internal/obs"
)

// echoPayload is what the echo test server reflects back.
type echoPayload struct {
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	RawQuery string            `json:"rawQuery"`
	Headers  map[string]string `json:"headers"`
	Body     string            `json:"body"`
}

// newEchoServer starts a server reflecting method, path, query, headers
// (lower-cased keys, first value), and body back as JSON.
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		headers := make(map[string]string, len(r.Header))
		for k := range r.Header {
			headers[strings.ToLower(k)] = r.Header.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoPayload{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Headers:  headers,
			Body:     string(body),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func echoOf(t *testing.T, res *Response) echoPayload {
	t.Helper()
	var echo echoPayload
	require.NoError(t, res.JSON(&echo), "echo response must decode")
	return echo
}

func TestClient_DefaultHeadersAppliedToEveryRequest(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)

	res, err := client.Get(context.Background(), "/anything")
	require.NoError(t, err)

	echo := echoOf(t, res)
	assert.Equal(t, "application/json", echo.Headers["content-type"])
	assert.Equal(t, "application/json", echo.Headers["accept"])
}

func TestClient_SetDefaultHeaders_MergesAndOverrides(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)

	client.SetDefaultHeaders(map[string]string{"X-Env": "staging"})
	client.SetDefaultHeaders(map[string]string{
		"X-Env":    "ci",
		"X-Run-Id": "42",
		"Accept":   "text/plain",
	})

	res, err := client.Get(context.Background(), "/anything")
	require.NoError(t, err)

	echo := echoOf(t, res)
	assert.Equal(t, "ci", echo.Headers["x-env"], "later merge wins")
	assert.Equal(t, "42", echo.Headers["x-run-id"])
	assert.Equal(t, "text/plain", echo.Headers["accept"], "defaults are overridable")
	assert.Equal(t, "application/json", echo.Headers["content-type"], "untouched defaults survive")
}

func TestClient_SetAuthToken(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)
	client.SetDefaultHeaders(map[string]string{"X-Env": "ci"})
	client.SetAuthToken("abc")

	res, err := client.Get(context.Background(), "/anything")
	require.NoError(t, err)

	echo := echoOf(t, res)
	assert.Equal(t, "Bearer abc", echo.Headers["authorization"])
	assert.Equal(t, "ci", echo.Headers["x-env"], "auth token must not disturb other defaults")
}

func TestClient_SetAuthToken_EmptyToken(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)
	client.SetAuthToken("")

	res, err := client.Get(context.Background(), "/anything")
	require.NoError(t, err)

	echo := echoOf(t, res)
	assert.Equal(t, "Bearer ", echo.Headers["authorization"])
}

func TestClient_PerCallHeadersOverrideDefaults(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)
	client.SetDefaultHeaders(map[string]string{"X-Env": "ci"})

	res, err := client.Get(context.Background(), "/anything",
		WithHeader("X-Env", "local"),
		WithHeaders(map[string]string{"X-Extra": "1"}),
	)
	require.NoError(t, err)

	echo := echoOf(t, res)
	assert.Equal(t, "local", echo.Headers["x-env"])
	assert.Equal(t, "1", echo.Headers["x-extra"])
}

func TestClient_QueryParams_OrderAndEncoding(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)

	res, err := client.Get(context.Background(), "/users",
		WithParams(Params{P("page", 1), P("limit", 10)}),
		WithQuery("q", "a&b=c"),
	)
	require.NoError(t, err)

	echo := echoOf(t, res)
	assert.Equal(t, "page=1&limit=10&q=a%26b%3Dc", echo.RawQuery, "insertion order and escaping")
	assert.Equal(t, "/users", echo.Path)
}

func TestClient_PostBodyShapes(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)
	ctx := context.Background()

	res, err := client.Post(ctx, "/users", map[string]string{"name": "Ann"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ann"}`, echoOf(t, res).Body, "maps are JSON-encoded")

	res, err = client.Post(ctx, "/users", `{"raw":true}`)
	require.NoError(t, err)
	assert.Equal(t, `{"raw":true}`, echoOf(t, res).Body, "strings pass through")

	res, err = client.Post(ctx, "/users", []byte("raw-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "raw-bytes", echoOf(t, res).Body)

	res, err = client.Put(ctx, "/users/1", bytes.NewReader([]byte("from-reader")))
	require.NoError(t, err)
	assert.Equal(t, "from-reader", echoOf(t, res).Body)

	res, err = client.Patch(ctx, "/users/1", nil)
	require.NoError(t, err)
	assert.Equal(t, "", echoOf(t, res).Body)
}

func TestClient_EncodeBodyError(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)

	_, err := client.Post(context.Background(), "/users", make(chan int))
	require.Error(t, err)
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestClient_ErrorStatusesReturnNormally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.Client(), srv.URL)
	res, err := client.Get(context.Background(), "/missing")
	require.NoError(t, err, "4xx is a response, not a failure")
	assert.Equal(t, http.StatusNotFound, res.Status())
}

// failingDoer returns a fixed error without touching the network.
type failingDoer struct{ err error }

func (d failingDoer) Do(*http.Request) (*http.Response, error) { return nil, d.err }

func TestClient_TransportErrorPropagatesUnchanged(t *testing.T) {
	sentinel := errors.New("connection refused")
	client := NewClient(failingDoer{err: sentinel}, "http://example.invalid")

	_, err := client.Get(context.Background(), "/")
	require.Error(t, err)
	assert.Equal(t, sentinel, err, "transport errors must not be wrapped")
}

func TestClient_ContextCancellation(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "/anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ConcurrentRequests(t *testing.T) {
	srv := newEchoServer(t)
	client := NewClient(srv.Client(), srv.URL)
	client.SetDefaultHeaders(map[string]string{"X-Env": "ci"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := client.Get(context.Background(), "/anything")
			if err != nil {
				t.Errorf("concurrent get failed: %v", err)
				return
			}
			if res.Status() != http.StatusOK {
				t.Errorf("concurrent get status = %d", res.Status())
			}
		}()
	}
	wg.Wait()
}

func TestClient_LogsRedactAuthorization(t *testing.T) {
	var buf bytes.Buffer
	restore := obs.SetOutputForTests(&buf)
	defer restore()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_token":"resp-secret","user":"ann"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.Client(), srv.URL)
	client.SetAuthToken("super-secret-token")

	_, err := client.Post(context.Background(), "/login", map[string]string{"password": "hunter2"})
	require.NoError(t, err)

	logs := buf.String()
	assert.NotContains(t, logs, "super-secret-token", "auth header must be redacted in request logs")
	assert.NotContains(t, logs, "resp-secret", "token fields must be redacted in response body logs")
	assert.Contains(t, logs, "[REDACTED]")
	assert.Contains(t, logs, "ann", "non-sensitive fields stay visible")
}

func TestClient_ElapsedIsMeasured(t *testing.T) {
	const delay = 20 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.Client(), srv.URL)
	res, err := client.Get(context.Background(), "/slow")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Elapsed(), delay, "elapsed must cover the transport call")
}
