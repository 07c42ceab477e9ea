package ratelimiter

import (
	"net/http"
	"strconv"
)

// KeyFunc extracts a rate limit key from the request.
type KeyFunc func(r *http.Request) string

// DenyFunc renders a rejected request. It receives a nil error when the
// limit was exceeded and the store error otherwise.
type DenyFunc func(w http.ResponseWriter, r *http.Request, result *Result, err error)

func defaultDeny(w http.ResponseWriter, _ *http.Request, _ *Result, err error) {
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	deny DenyFunc
}

// WithDenyHandler replaces the plain-text rejection response.
func WithDenyHandler(fn DenyFunc) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.deny = fn
	}
}

// Middleware limits requests per key. Requests with an empty key pass
// through unlimited.
func Middleware(limiter RateLimiter, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := middlewareOptions{deny: defaultDeny}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				o.deny(w, r, nil, err)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				if secs := int(result.RetryAfter().Seconds()); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				o.deny(w, r, result, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
