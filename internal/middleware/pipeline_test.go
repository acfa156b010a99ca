package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-gateway/internal/metrics"
	"api-gateway/internal/ratelimit"
)

var testFastPathPrefixes = []string{"/health", "/metrics", "/api/auth/", "/api/public/"}

// newPipeline assembles the full chain around the given handler with a
// fresh limiter and an isolated metrics registry.
func newPipeline(t *testing.T, limit ratelimit.Limit, handler http.Handler) http.Handler {
	t.Helper()

	limiter := ratelimit.New(ratelimit.Config{
		Limit:       limit,
		Enabled:     true,
		ExemptPaths: testFastPathPrefixes,
	})
	m := metrics.New(prometheus.NewRegistry())

	return Chain(handler, Pipeline(limiter, m, testFastPathPrefixes)...)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRequestIDGenerated(t *testing.T) {
	pipeline := newPipeline(t, ratelimit.DefaultLimit, okHandler())

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/echo", nil))

		id := rec.Header().Get("X-Request-ID")
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "generated ids must be distinct")
		seen[id] = true
	}
}

func TestRequestIDPreserved(t *testing.T) {
	pipeline := newPipeline(t, ratelimit.DefaultLimit, okHandler())

	for _, supplied := range []string{"req-abc-123", "req-def-456"} {
		r := httptest.NewRequest(http.MethodGet, "/api/echo", nil)
		r.Header.Set("X-Request-ID", supplied)
		rec := httptest.NewRecorder()
		pipeline.ServeHTTP(rec, r)

		assert.Equal(t, supplied, rec.Header().Get("X-Request-ID"))
	}
}

func TestTimingHeaders(t *testing.T) {
	pipeline := newPipeline(t, ratelimit.DefaultLimit, okHandler())

	rec := httptest.NewRecorder()
	pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/echo", nil))

	serverTiming := rec.Header().Get("Server-Timing")
	assert.Contains(t, serverTiming, "classify;dur=")
	assert.Contains(t, serverTiming, "ratelimit;dur=")
	assert.Contains(t, serverTiming, "total;dur=")

	responseTime := rec.Header().Get("X-Response-Time")
	assert.True(t, strings.HasSuffix(responseTime, "ms"), "X-Response-Time %q should end in ms", responseTime)
}

func TestCORSHeadersOnErrorResponses(t *testing.T) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	pipeline := newPipeline(t, ratelimit.DefaultLimit, notFound)

	t.Run("origin echoed on error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/missing", nil)
		r.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		pipeline.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, rec.Header().Values("Vary"), "Origin")
	})

	t.Run("no origin means no cors headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/missing", nil))

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("success responses untouched", func(t *testing.T) {
		ok := newPipeline(t, ratelimit.DefaultLimit, okHandler())
		r := httptest.NewRequest(http.MethodGet, "/api/echo", nil)
		r.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		ok.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimitSequence(t *testing.T) {
	pipeline := newPipeline(t, ratelimit.Limit{Count: 3, Window: time.Minute}, okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/echo", nil))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should be admitted", i)
		assert.Equal(t, strconv.Itoa(3-i-1), rec.Header().Get("X-RateLimit-Remaining"))
	}

	r := httptest.NewRequest(http.MethodGet, "/api/echo", nil)
	r.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	pipeline.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 60)

	// Rejections carry CORS headers like any other error response.
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Rate limit exceeded", body["detail"])
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["request_id"])
}

func TestFastPathNeverRateLimited(t *testing.T) {
	pipeline := newPipeline(t, ratelimit.Limit{Count: 1, Window: time.Minute}, okHandler())

	// Exhaust the quota on a standard path.
	rec := httptest.NewRecorder()
	pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/echo", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/echo", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	t.Run("preflight always admitted", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/echo", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("health always admitted", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestFastPathSecurityHeaders(t *testing.T) {
	pipeline := newPipeline(t, ratelimit.DefaultLimit, okHandler())

	rec := httptest.NewRecorder()
	pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/echo", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))

	// Standard requests are left alone.
	rec = httptest.NewRecorder()
	pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/echo", nil))
	assert.Empty(t, rec.Header().Get("X-Frame-Options"))
}

func TestPanicBecomesStructured500(t *testing.T) {
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(fmt.Errorf("database credentials leaked in this message"))
	})
	pipeline := newPipeline(t, ratelimit.DefaultLimit, boom)

	r := httptest.NewRequest(http.MethodPost, "/api/echo", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("X-Request-ID", "req-panic-1")
	rec := httptest.NewRecorder()
	pipeline.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_server_error", body["error"])
	assert.Equal(t, "req-panic-1", body["request_id"])
	assert.Equal(t, "/api/echo", body["path"])
	assert.Equal(t, http.MethodPost, body["method"])
	assert.NotZero(t, body["timestamp"])

	// Raw failure text stays server-side unless debug logging is on.
	assert.Equal(t, "An unexpected error occurred", body["detail"])
	assert.NotContains(t, rec.Body.String(), "credentials")
}

func TestPanicResponseStillTraced(t *testing.T) {
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})
	pipeline := newPipeline(t, ratelimit.DefaultLimit, boom)

	rec := httptest.NewRecorder()
	pipeline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/echo", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Header().Get("Server-Timing"), "total;dur=")
}
