package reqlog

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	// HeaderCorrelationID is the canonical header used to track requests end-to-end.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is an accepted alternative header name used by some proxies.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// Middleware wraps an http.Handler, typically to add cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in order, returning the final wrapped handler.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type correlationConfig struct {
	gen IDGenerator
}

// CorrelationOption configures the Correlation middleware.
type CorrelationOption func(*correlationConfig)

// WithGenerator replaces the UUID generator used for requests that arrive
// without a correlation id.
func WithGenerator(g IDGenerator) CorrelationOption {
	return func(c *correlationConfig) {
		if g != nil {
			c.gen = g
		}
	}
}

// Correlation binds a request scope to every request. The id is taken from
// the X-Correlation-ID header, then X-Request-ID, and generated otherwise.
// It is written back to the request headers and to the response.
func Correlation(opts ...CorrelationOption) Middleware {
	cfg := correlationConfig{gen: UUIDGenerator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := normalizeCID(r.Header.Get(HeaderCorrelationID))
			if cid == "" {
				cid = normalizeCID(r.Header.Get(HeaderRequestID))
			}
			if cid == "" {
				cid = normalizeCID(cfg.gen.NewID())
			}

			r = r.WithContext(WithCorrelationID(r.Context(), cid))
			r.Header.Set(HeaderCorrelationID, cid)
			w.Header().Set(HeaderCorrelationID, cid)

			next.ServeHTTP(w, r)
		})
	}
}

func normalizeCID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if strings.ContainsAny(v, "\r\n") {
		return ""
	}
	if len(v) > maxCorrelationIDLen {
		cut := maxCorrelationIDLen
		for cut > 0 && !utf8.RuneStart(v[cut]) {
			cut--
		}
		v = v[:cut]
	}
	return v
}
