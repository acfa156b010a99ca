// Package middleware implements the request pipeline that wraps every
// inbound request: correlation-id tracing, fast-path classification, the
// error/CORS boundary, and rate-limit admission, composed as an explicit
// ordered chain.
package middleware

import (
	"net/http"

	"api-gateway/internal/metrics"
	"api-gateway/internal/ratelimit"
)

// Stage wraps an http.Handler with additional behavior.
type Stage func(http.Handler) http.Handler

// Chain composes stages in the order given: the first stage in the list is
// the outermost (runs first on the request, last on the response).
func Chain(h http.Handler, stages ...Stage) http.Handler {
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}
	return h
}

// Pipeline returns the canonical stage order. The chain direction is
// fixed: later stages may consult state set by earlier ones (correlation
// id, fast-path flag) and the error boundary must sit inside the tracer so
// the tracer never sees a raw panic.
func Pipeline(limiter *ratelimit.Limiter, m *metrics.Metrics, fastPathPrefixes []string) []Stage {
	return []Stage{
		Tracer(m),
		FastPathClassifier(fastPathPrefixes, m),
		ErrorBoundary(m),
		RateLimit(limiter, m),
	}
}
