package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-console/internal/model"
	"admin-console/internal/permission"
	"admin-console/internal/service"
	"admin-console/internal/task"
)

type recordingStore struct {
	mu        sync.Mutex
	entries   []model.AuditEntry
	insertErr error
}

func (s *recordingStore) Insert(ctx context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingStore) List(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries, len(s.entries), nil
}

func (s *recordingStore) last(t *testing.T) model.AuditEntry {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.entries)
	return s.entries[len(s.entries)-1]
}

func newAuditPipeline(store *recordingStore) *AuditMiddleware {
	return NewAuditMiddleware(service.NewAuditService(store, task.SyncRunner{}))
}

func TestAuditHandlerIsTransparentToBodies(t *testing.T) {
	store := &recordingStore{}
	mw := newAuditPipeline(store)

	// Echo handler: whatever the handler reads must be byte-exact.
	var handlerSaw []byte
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		handlerSaw = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))

	payload := strings.Repeat("x", MaxBodyCaptureBytes+500)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, payload, string(handlerSaw), "handler must see the full original body")
	assert.Equal(t, payload, rec.Body.String(), "client must receive the untouched response")

	entry := store.last(t)
	assert.Len(t, entry.RequestBody, MaxBodyCaptureBytes)
	assert.Len(t, entry.ResponseBody, MaxBodyCaptureBytes)
	assert.Equal(t, http.StatusCreated, entry.StatusCode)
}

func TestAuditHandlerRecordsRequestMetadata(t *testing.T) {
	store := &recordingStore{}
	mw := newAuditPipeline(store)

	var downstreamID string
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstreamID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/abc", nil)
	req.Header.Set("User-Agent", "audit-test/1.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), downstreamID,
		"inner stages must see the same correlation id as the response header")

	entry := store.last(t)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), entry.ID)
	assert.Equal(t, http.MethodDelete, entry.Method)
	assert.Equal(t, "/api/v1/admin/users/abc", entry.Path)
	assert.Equal(t, "203.0.113.9", entry.IPAddress)
	assert.Equal(t, "audit-test/1.0", entry.UserAgent)
	assert.Nil(t, entry.UserID, "anonymous request carries no actor")
	assert.Empty(t, entry.ErrorMessage)
}

func TestAuditHandlerFlagsErrorResponses(t *testing.T) {
	store := &recordingStore{}
	mw := newAuditPipeline(store)

	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))

	entry := store.last(t)
	assert.Equal(t, http.StatusForbidden, entry.StatusCode)
	assert.Contains(t, entry.ErrorMessage, "403")
}

func TestAuditHandlerStoresRedactedBodies(t *testing.T) {
	store := &recordingStore{}
	mw := newAuditPipeline(store)

	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Handler still receives the raw secret.
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "hunter2")
		_, _ = w.Write([]byte(`{"token":"issued-jwt"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"a@b.com","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// The wire response is untouched.
	assert.Contains(t, rec.Body.String(), "issued-jwt")

	entry := store.last(t)
	assert.NotContains(t, entry.RequestBody, "hunter2")
	assert.Contains(t, entry.RequestBody, "[REDACTED]")
	assert.NotContains(t, entry.ResponseBody, "issued-jwt")
}

func TestAuditHandlerAttributesAuthenticatedActor(t *testing.T) {
	store := &recordingStore{}
	auditMW := newAuditPipeline(store)
	authMW := NewAuthMiddleware(&fakeVerifier{userID: "user-42"},
		&fakePermissionSource{role: "admin", set: permission.Set{permission.Wildcard}})

	// The audit middleware wraps the auth stage, as in the real router.
	h := auditMW.Handler(authMW.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	entry := store.last(t)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "user-42", *entry.UserID)
}

func TestAuditHandlerAnonymousOnRejectedAuth(t *testing.T) {
	store := &recordingStore{}
	auditMW := newAuditPipeline(store)
	authMW := NewAuthMiddleware(&fakeVerifier{err: model.ErrInvalidToken}, &fakePermissionSource{})

	h := auditMW.Handler(authMW.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	entry := store.last(t)
	assert.Equal(t, http.StatusUnauthorized, entry.StatusCode)
	assert.Nil(t, entry.UserID)
}

func TestAuditHandlerSurvivesInsertFailure(t *testing.T) {
	store := &recordingStore{insertErr: errors.New("audit table gone")}
	mw := newAuditPipeline(store)

	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCaptureRequestBodyPreservesReadErrors(t *testing.T) {
	store := &recordingStore{}
	mw := newAuditPipeline(store)

	brokenErr := errors.New("unexpected disconnect")
	var handlerErr error
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, handlerErr = io.ReadAll(r.Body)
	}))

	body := io.NopCloser(io.MultiReader(bytes.NewReader(bytes.Repeat([]byte("a"), MaxBodyCaptureBytes)), errReader{brokenErr}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.ErrorIs(t, handlerErr, brokenErr)
}

func TestClientIPResolution(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded chain", "198.51.100.7, 10.0.0.1", "", "127.0.0.1:1234", "198.51.100.7"},
		{"single forwarded", "198.51.100.7", "", "127.0.0.1:1234", "198.51.100.7"},
		{"real ip fallback", "", "198.51.100.9", "127.0.0.1:1234", "198.51.100.9"},
		{"remote addr fallback", "", "", "192.0.2.4:9999", "192.0.2.4"},
		{"remote addr without port", "", "", "192.0.2.4", "192.0.2.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
