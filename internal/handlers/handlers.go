// Package handlers holds the downstream HTTP handlers the pipeline wraps.
// The pipeline treats these as opaque next stages; nothing here is part of
// the middleware core.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"api-gateway/internal/middleware"
	"api-gateway/internal/ratelimit"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

type Handlers struct {
	limiter *ratelimit.Limiter
	started time.Time
}

func New(limiter *ratelimit.Limiter) *Handlers {
	return &Handlers{
		limiter: limiter,
		started: time.Now(),
	}
}

// HealthCheck reports process liveness plus the active rate-limit tier,
// which is the one piece of pipeline state operators care about.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"uptime_seconds":  int64(time.Since(h.started).Seconds()),
		"ratelimit_tier":  h.limiter.Tier().String(),
		"ratelimit_limit": h.limiter.Limit().String(),
	})
}

// VersionInfo reports the build version.
func (h *Handlers) VersionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

// Echo returns the request body and correlation id; it exists so the
// wired pipeline has a real downstream to exercise.
func (h *Handlers) Echo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unreadable request body"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id": middleware.RequestIDFromContext(r.Context()),
		"echo":       string(body),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
