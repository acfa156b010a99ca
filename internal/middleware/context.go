package middleware

import (
	"context"
	"time"
)

type contextKey string

const requestContextKey contextKey = "pipeline_request_context"

// RequestContext is the per-request state shared by the pipeline stages.
// It is created at pipeline entry, owned exclusively by that invocation
// (stages run strictly in sequence, so no locking), and discarded with the
// response.
type RequestContext struct {
	// RequestID is the correlation id, immutable once set by the tracer.
	RequestID string

	// FastPath is set once by the classifier and read by later stages.
	// Expensive stages skip themselves when it is true; this is a
	// cooperative contract, not enforced here.
	FastPath bool

	segments []TimingSegment
}

// NewRequestContext creates the per-request state for one pipeline
// invocation.
func NewRequestContext(requestID string) *RequestContext {
	return &RequestContext{RequestID: requestID}
}

// RecordSegment stores a named timing segment. Segments keep insertion
// order; recording an existing name overwrites it in place.
func (rc *RequestContext) RecordSegment(name string, d time.Duration) {
	for i := range rc.segments {
		if rc.segments[i].Name == name {
			rc.segments[i].Duration = d
			return
		}
	}
	rc.segments = append(rc.segments, TimingSegment{Name: name, Duration: d})
}

// Segments returns the recorded timing segments in insertion order.
func (rc *RequestContext) Segments() []TimingSegment {
	return rc.segments
}

// WithRequestContext attaches the pipeline state to a context.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// FromContext returns the pipeline state for the request, or nil when the
// request never passed through the tracer (e.g. a bare handler test).
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}

// RequestIDFromContext returns the correlation id, or the empty string.
func RequestIDFromContext(ctx context.Context) string {
	if rc := FromContext(ctx); rc != nil {
		return rc.RequestID
	}
	return ""
}
