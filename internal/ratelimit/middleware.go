package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/kuitang/webprobe/internal/errs"
)

// DefaultRetryAfterSeconds is the value of the Retry-After header sent when a
// rate limit is exceeded.
const DefaultRetryAfterSeconds = 1

// Middleware enforces per-key rate limits around an HTTP handler. keyFn
// extracts the limit key from the request; requests with an empty key bypass
// the limiter. Rejected requests receive a coded 429 JSON error with a
// Retry-After header.
func Middleware(limiter *Limiter, keyFn func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(key) {
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				errs.WriteHTTP(w, errs.New(errs.ResourceExhausted, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
