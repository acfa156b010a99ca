package middleware

import (
	"net/http"
	"strings"
	"time"

	"api-gateway/internal/common/logging"
	"api-gateway/internal/metrics"
)

// fastPathBudget is the classification budget. Exceeding it means the
// "fast" path is not fast and something upstream regressed.
const fastPathBudget = 100 * time.Millisecond

// securityHeaders are appended to fast-path responses when absent.
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"X-XSS-Protection":       "1; mode=block",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

// FastPathClassifier marks latency-sensitive requests so expensive
// downstream stages can skip themselves. Pre-flight OPTIONS requests are
// always fast-path regardless of path; otherwise classification is a pure
// prefix match. The flag is cooperative: this stage only sets it.
func FastPathClassifier(prefixes []string, m *metrics.Metrics) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rc := FromContext(r.Context())
			if rc == nil {
				// Not running inside the pipeline; classify nothing.
				next.ServeHTTP(w, r)
				return
			}

			fast := r.Method == http.MethodOptions
			if !fast {
				for _, prefix := range prefixes {
					if strings.HasPrefix(r.URL.Path, prefix) {
						fast = true
						break
					}
				}
			}
			rc.FastPath = fast

			if fast {
				header := w.Header()
				for name, value := range securityHeaders {
					if header.Get(name) == "" {
						header.Set(name, value)
					}
				}
				if m != nil {
					m.FastPathRequests.Inc()
				}
			}

			elapsed := time.Since(start)
			rc.RecordSegment("classify", elapsed)

			if elapsed > fastPathBudget {
				logging.Warn("fast-path classification exceeded its budget",
					logging.String("request_id", rc.RequestID),
					logging.String("path", r.URL.Path),
					logging.Duration("elapsed", elapsed),
				)
			}

			next.ServeHTTP(w, r)
		})
	}
}
