package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"api-gateway/internal/common/logging"
	"api-gateway/internal/metrics"
)

// Tracer is the outermost pipeline stage. It adopts the inbound
// X-Request-ID (or generates one), carries it through the request context,
// renders the accumulated timing segments into the Server-Timing header,
// and emits one structured log line per request.
//
// Response headers must be written before the status line, so the total
// segment is closed by a writer wrapper at first WriteHeader rather than
// after the handler returns.
func Tracer(m *metrics.Metrics) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			rc := NewRequestContext(requestID)
			ctx := WithRequestContext(r.Context(), rc)
			ctx = logging.ContextWithRequestID(ctx, requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			tw := &timingWriter{
				ResponseWriter: w,
				start:          start,
				rc:             rc,
			}

			next.ServeHTTP(tw, r)

			// A handler that produced no output at all still gets its
			// timing headers onto the implicit 200.
			if !tw.wroteHeader {
				tw.finalize()
				tw.status = http.StatusOK
			}

			duration := time.Since(start)
			fields := []logging.Field{
				logging.String("request_id", requestID),
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", tw.status),
				logging.Int64("duration_ms", duration.Milliseconds()),
			}
			if ua := r.Header.Get("User-Agent"); ua != "" {
				fields = append(fields, logging.String("user_agent", ua))
			}

			if tw.status >= 500 {
				logging.Error("request completed", nil, fields...)
			} else {
				logging.Info("request completed", fields...)
			}

			if m != nil {
				m.RecordRequest(r.Method, r.URL.Path, tw.status, duration)
			}
		})
	}
}

// timingWriter closes the total segment and emits the timing headers the
// moment the response commits.
type timingWriter struct {
	http.ResponseWriter
	start       time.Time
	rc          *RequestContext
	status      int
	wroteHeader bool
}

func (tw *timingWriter) WriteHeader(code int) {
	if tw.wroteHeader {
		tw.ResponseWriter.WriteHeader(code)
		return
	}
	tw.wroteHeader = true
	tw.status = code
	tw.finalize()
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timingWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

// finalize records the total segment and writes the consolidated timing
// headers. Headers set after this point never reach the client.
func (tw *timingWriter) finalize() {
	total := time.Since(tw.start)
	tw.rc.RecordSegment("total", total)

	header := tw.ResponseWriter.Header()
	header.Set("Server-Timing", RenderServerTiming(tw.rc.Segments()))
	header.Set("X-Response-Time", fmt.Sprintf("%.2fms", float64(total)/float64(time.Millisecond)))
}
