package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterThrottlesCredentialEndpoint(t *testing.T) {
	m := NewRateLimitMiddleware(120, 1)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	first := request()
	require.Equal(t, http.StatusOK, first.Code)

	second := request()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")

	// A different client gets its own bucket.
	other := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	other.Header.Set("X-Forwarded-For", "203.0.113.10")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterEvictsStaleClients(t *testing.T) {
	m := NewRateLimitMiddleware(120, 10)

	m.getLimiter("198.51.100.1")
	m.getLimiter("198.51.100.2")

	// Backdate one client past the stale cutoff and force the next lookup
	// to run a sweep.
	m.mu.Lock()
	m.clients["198.51.100.1"].lastSeen = time.Now().Add(-time.Hour)
	m.lastSweep = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	m.getLimiter("198.51.100.3")

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.NotContains(t, m.clients, "198.51.100.1")
	assert.Contains(t, m.clients, "198.51.100.2")
	assert.Contains(t, m.clients, "198.51.100.3")
}
