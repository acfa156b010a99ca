package middleware

import (
	"fmt"
	"strings"
	"time"
)

// TimingSegment records the elapsed time of one named pipeline phase.
type TimingSegment struct {
	Name     string
	Duration time.Duration
}

// Fragment renders the segment as a Server-Timing entry, e.g.
// "total;dur=12.40".
func (s TimingSegment) Fragment() string {
	return fmt.Sprintf("%s;dur=%.2f", s.Name, float64(s.Duration)/float64(time.Millisecond))
}

// RenderServerTiming joins segments into a Server-Timing header value in
// insertion order.
func RenderServerTiming(segments []TimingSegment) string {
	if len(segments) == 0 {
		return ""
	}
	fragments := make([]string, len(segments))
	for i, s := range segments {
		fragments[i] = s.Fragment()
	}
	return strings.Join(fragments, ", ")
}
