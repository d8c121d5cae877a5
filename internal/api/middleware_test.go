package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"ok", http.StatusOK, `{"status":"ok"}`},
		{"not found", http.StatusNotFound, "Cluster not found"},
		{"unavailable", http.StatusServiceUnavailable, "pending"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			w := serve(LoggingMiddleware(inner), "/api/clusters/prod")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestStatusWriter(t *testing.T) {
	w := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	assert.Equal(t, http.StatusOK, sw.status, "default before WriteHeader")

	sw.WriteHeader(http.StatusServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, sw.status)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name  string
		panic any
	}{
		{"string", "snapshot missing"},
		{"error", assert.AnError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(tt.panic) })
			w := serve(RecoveryMiddleware(inner), "/api/clusters/prod/summary")
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, w.Body.String(), "Internal Server Error")
		})
	}
}

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	w := serve(RecoveryMiddleware(inner), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestMiddlewareChain(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("accepted"))
	})
	h := RecoveryMiddleware(SecurityHeadersMiddleware(LoggingMiddleware(inner)))
	w := serve(h, "/api/alerts")

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "accepted", w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, contentSecurityPolicy, w.Header().Get("Content-Security-Policy"))
}

func TestSecurityHeadersOnPanic(t *testing.T) {
	inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	w := serve(RecoveryMiddleware(SecurityHeadersMiddleware(inner)), "/api/clusters")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
