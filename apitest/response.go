package apitest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Response is a fully buffered HTTP response. The body is drained exactly
// once when the request completes, so Text, JSON, Bytes, and Field may be
// called repeatedly in any order.
type Response struct {
	status  int
	header  http.Header
	body    []byte
	elapsed time.Duration
}

// Status returns the HTTP status code.
func (r *Response) Status() int {
	return r.status
}

// Headers returns the response headers. Lookup via Get is case-insensitive
// per net/http canonicalization.
func (r *Response) Headers() http.Header {
	return r.header
}

// Bytes returns a copy of the raw body.
func (r *Response) Bytes() []byte {
	cp := make([]byte, len(r.body))
	copy(cp, r.body)
	return cp
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.body)
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.body, v)
}

// Field looks up a JSON value by gjson path, e.g. "id" or "user.address.city".
// The zero Result (Exists() == false) is returned for missing paths or
// non-JSON bodies.
func (r *Response) Field(path string) gjson.Result {
	return gjson.GetBytes(r.body, path)
}

// Elapsed returns the measured wall-clock duration of the round trip, from
// just before the transport call to just after.
func (r *Response) Elapsed() time.Duration {
	return r.elapsed
}
