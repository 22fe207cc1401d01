package apitest

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/kuitang/webprobe/internal/logutil"
)

// VerifyStatus asserts the response status code.
func VerifyStatus(t testing.TB, res *Response, want int) {
	t.Helper()
	if res.Status() != want {
		t.Errorf("status = %d, want %d (body: %s)",
			res.Status(), want, logutil.TruncateForLog(res.Text(), 200))
	}
}

// VerifyHeader asserts a response header value. Lookup is case-insensitive.
func VerifyHeader(t testing.TB, res *Response, name, want string) {
	t.Helper()
	if got := res.Headers().Get(name); got != want {
		t.Errorf("header %q = %q, want %q", name, got, want)
	}
}

// VerifyResponseContains parses the body as a JSON object and asserts that
// every key in fields is present with the given value. Only top-level keys
// are looked up; expected values are compared after JSON normalization, so an
// untyped 1 matches the JSON number 1.
func VerifyResponseContains(t testing.TB, res *Response, fields map[string]any) {
	t.Helper()

	var parsed map[string]any
	if err := res.JSON(&parsed); err != nil {
		t.Fatalf("response body is not a JSON object: %v (body: %s)",
			err, logutil.TruncateForLog(res.Text(), 200))
	}

	for key, want := range fields {
		got, ok := parsed[key]
		if !ok {
			t.Errorf("response missing field %q", key)
			continue
		}
		if !jsonEqual(got, want) {
			t.Errorf("field %q = %v, want %v", key, got, want)
		}
	}
}

// VerifyJSONField asserts a single JSON value addressed by gjson path.
func VerifyJSONField(t testing.TB, res *Response, path string, want any) {
	t.Helper()

	field := res.Field(path)
	if !field.Exists() {
		t.Errorf("response missing field at path %q", path)
		return
	}
	if !jsonEqual(field.Value(), want) {
		t.Errorf("field %q = %v, want %v", path, field.Value(), want)
	}
}

// VerifyResponseTime asserts the measured round-trip duration is at most max.
func VerifyResponseTime(t testing.TB, res *Response, max time.Duration) {
	t.Helper()
	if res.Elapsed() > max {
		t.Errorf("response took %s, want at most %s", res.Elapsed(), max)
	}
}

// jsonEqual compares a JSON-decoded value against an expectation after
// round-tripping the expectation through encoding/json.
func jsonEqual(got, want any) bool {
	raw, err := json.Marshal(want)
	if err != nil {
		return false
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return false
	}
	return reflect.DeepEqual(got, normalized)
}
