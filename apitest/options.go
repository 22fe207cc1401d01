package apitest

import (
	"fmt"
	"net/url"
	"strings"
)

// Param is a single query parameter. Values of any type are coerced to
// strings before percent-encoding.
type Param struct {
	Key   string
	Value any
}

// P constructs a query parameter.
func P(key string, value any) Param {
	return Param{Key: key, Value: value}
}

// Params is an ordered list of query parameters. Encoding preserves the
// list's order; nothing is sorted.
type Params []Param

// Encode percent-encodes the parameters and joins them with '&'. An empty
// list encodes to "".
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p))
	for _, param := range p {
		parts = append(parts, url.QueryEscape(param.Key)+"="+url.QueryEscape(stringify(param.Value)))
	}
	return strings.Join(parts, "&")
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

type requestOptions struct {
	headers map[string]string
	params  Params
}

// Option customizes a single request.
type Option func(*requestOptions)

// WithHeaders adds per-call headers. They override same-named default headers
// by literal (case-sensitive) key match.
func WithHeaders(headers map[string]string) Option {
	return func(ro *requestOptions) {
		if ro.headers == nil {
			ro.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			ro.headers[k] = v
		}
	}
}

// WithHeader adds a single per-call header.
func WithHeader(key, value string) Option {
	return WithHeaders(map[string]string{key: value})
}

// WithParams appends query parameters in order.
func WithParams(params Params) Option {
	return func(ro *requestOptions) {
		ro.params = append(ro.params, params...)
	}
}

// WithQuery appends a single query parameter.
func WithQuery(key string, value any) Option {
	return WithParams(Params{P(key, value)})
}
