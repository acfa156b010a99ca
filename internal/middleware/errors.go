package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"api-gateway/internal/common/logging"
	"api-gateway/internal/metrics"
)

// genericFailureDetail replaces raw failure text in 500 bodies unless
// debug logging is active.
const genericFailureDetail = "An unexpected error occurred"

// failureResponse is the wire body for a downstream failure.
type failureResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id"`
	Path      string `json:"path"`
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorBoundary is the single recovery point of the pipeline. Every error
// response leaving it carries CORS headers matching the request's Origin,
// so cross-origin clients can always read error bodies instead of hitting
// an opaque network-level CORS failure. Any panic from downstream becomes
// a structured JSON 500; nothing propagates past this stage.
func ErrorBoundary(m *metrics.Metrics) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			cw := &corsWriter{ResponseWriter: w, origin: origin}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// net/http's own abort signal, not a failure.
					panic(rec)
				}

				requestID := RequestIDFromContext(r.Context())
				logging.Error("downstream handler failed", fmt.Errorf("%v", rec),
					logging.String("request_id", requestID),
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path),
					logging.String("stack", string(debug.Stack())),
				)
				if m != nil {
					m.PanicsRecovered.Inc()
				}

				if cw.wroteHeader {
					// The response already committed; the failure is
					// logged but the wire cannot be repaired.
					return
				}

				detail := genericFailureDetail
				if logging.DebugEnabled() {
					detail = fmt.Sprintf("%v", rec)
				}

				cw.Header().Set("Content-Type", "application/json")
				cw.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(cw).Encode(failureResponse{
					Error:     "internal_server_error",
					Detail:    detail,
					RequestID: requestID,
					Path:      r.URL.Path,
					Method:    r.Method,
					Timestamp: time.Now().Unix(),
				})
			}()

			next.ServeHTTP(cw, r)
		})
	}
}

// corsWriter injects CORS headers onto error responses the moment the
// status line commits. Success responses are left alone; a downstream
// stage that already set Access-Control-Allow-Origin wins.
type corsWriter struct {
	http.ResponseWriter
	origin      string
	status      int
	wroteHeader bool
}

func (cw *corsWriter) WriteHeader(code int) {
	if !cw.wroteHeader {
		cw.wroteHeader = true
		cw.status = code
		if code >= http.StatusBadRequest && cw.origin != "" {
			header := cw.ResponseWriter.Header()
			if header.Get("Access-Control-Allow-Origin") == "" {
				header.Set("Access-Control-Allow-Origin", cw.origin)
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Add("Vary", "Origin")
			}
		}
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *corsWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	return cw.ResponseWriter.Write(b)
}
