package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"api-gateway/internal/common/logging"
	"api-gateway/internal/identity"
	"api-gateway/internal/metrics"
	"api-gateway/internal/ratelimit"
)

// rejectionResponse is the wire body for an admission rejection. This is
// expected traffic shaping, distinct from a downstream failure.
type rejectionResponse struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// RateLimit enforces the sliding-window admission budget per client
// identity. Fast-path requests skip admission entirely: pre-flight
// requests must never be rejected (the browser would abandon the real
// request) and exempt prefixes always classify fast-path.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := FromContext(r.Context())
			if rc != nil && rc.FastPath {
				next.ServeHTTP(w, r)
				return
			}
			if limiter.IsExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			key := identity.FromRequest(r)

			result, err := limiter.Check(r.Context(), key)
			if err != nil {
				// Only context cancellation reaches here; the client is
				// gone and there is nobody to answer.
				return
			}

			if rc != nil {
				rc.RecordSegment("ratelimit", time.Since(start))
			}

			header := w.Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			header.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := result.RetryAfter(time.Now())
				header.Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))

				logging.Warn("rate limit exceeded",
					logging.String("request_id", RequestIDFromContext(r.Context())),
					logging.String("client", key),
					logging.String("path", r.URL.Path),
					logging.Duration("retry_after", retryAfter),
				)
				if m != nil {
					m.RateLimitRejects.Inc()
				}

				header.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(rejectionResponse{
					Detail:    "Rate limit exceeded",
					RequestID: RequestIDFromContext(r.Context()),
					Error:     "rate_limit_exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
