package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-console/internal/model"
	"admin-console/internal/permission"
)

type fakeVerifier struct {
	userID string
	err    error
}

func (f *fakeVerifier) Verify(tokenString string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

type fakePermissionSource struct {
	role string
	set  permission.Set
	err  error
}

func (f *fakePermissionSource) PermissionsForUser(ctx context.Context, userID string) (string, permission.Set, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.role, f.set, nil
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestRequireAuthRejectsBeforeHandler(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		verifier *fakeVerifier
		wantCode string
	}{
		{"no header", "", &fakeVerifier{}, "AUTH_HEADER_MISSING"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", &fakeVerifier{}, "AUTH_HEADER_MALFORMED"},
		{"scheme without token", "Bearer ", &fakeVerifier{}, "AUTH_HEADER_MALFORMED"},
		{"bare token", "sometoken", &fakeVerifier{}, "AUTH_HEADER_MALFORMED"},
		{"expired token", "Bearer tok", &fakeVerifier{err: model.ErrTokenExpired}, "TOKEN_EXPIRED"},
		{"invalid token", "Bearer tok", &fakeVerifier{err: model.ErrInvalidToken}, "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewAuthMiddleware(tt.verifier, &fakePermissionSource{})

			handlerRan := false
			h := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerRan = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.False(t, handlerRan, "handler must not run on auth failure")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantCode, decodeErrorCode(t, rec))
		})
	}
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	mw := NewAuthMiddleware(&fakeVerifier{userID: "user-42"}, &fakePermissionSource{})

	var seen model.Identity
	h := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		seen = identity
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", seen.UserID)
}

func TestRequireAuthAcceptsLowercaseScheme(t *testing.T) {
	mw := NewAuthMiddleware(&fakeVerifier{userID: "user-42"}, &fakePermissionSource{})

	h := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer whatever")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionWithoutIdentity(t *testing.T) {
	mw := NewAuthMiddleware(&fakeVerifier{}, &fakePermissionSource{})

	handlerRan := false
	h := mw.RequirePermission(permission.UsersView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))

	assert.False(t, handlerRan)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermissionDecisions(t *testing.T) {
	tests := []struct {
		name       string
		source     *fakePermissionSource
		required   permission.Permission
		wantStatus int
	}{
		{
			"granted directly",
			&fakePermissionSource{role: "viewer", set: permission.Set{permission.UsersView}},
			permission.UsersView,
			http.StatusOK,
		},
		{
			"granted via wildcard",
			&fakePermissionSource{role: "admin", set: permission.Set{permission.Wildcard}},
			permission.UsersDelete,
			http.StatusOK,
		},
		{
			"missing permission",
			&fakePermissionSource{role: "viewer", set: permission.Set{permission.UsersView}},
			permission.UsersDelete,
			http.StatusForbidden,
		},
		{
			"empty set",
			&fakePermissionSource{role: "user", set: permission.Set{}},
			permission.LogsView,
			http.StatusForbidden,
		},
		{
			"account vanished",
			&fakePermissionSource{err: model.ErrUserNotFound},
			permission.UsersView,
			http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewAuthMiddleware(&fakeVerifier{userID: "user-42"}, tt.source)

			chain := mw.RequireAuth(mw.RequirePermission(tt.required)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
			req.Header.Set("Authorization", "Bearer tok")
			rec := httptest.NewRecorder()
			chain.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequirePermissionHidesInternalErrors(t *testing.T) {
	source := &fakePermissionSource{err: errors.New("pq: connection reset by peer")}
	mw := NewAuthMiddleware(&fakeVerifier{userID: "user-42"}, source)

	chain := mw.RequireAuth(mw.RequirePermission(permission.UsersView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeErrorCode(t, rec))
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestRequirePermissionLogsRequestID(t *testing.T) {
	var logged bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logged, nil)))
	defer slog.SetDefault(previous)

	source := &fakePermissionSource{err: errors.New("pq: connection reset by peer")}
	mw := NewAuthMiddleware(&fakeVerifier{userID: "user-42"}, source)

	chain := mw.RequireAuth(mw.RequirePermission(permission.UsersView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req = req.WithContext(WithRequestID(req.Context(), "req-correlate-1"))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logged.String(), `"request_id":"req-correlate-1"`)
	assert.Contains(t, logged.String(), "connection reset")
}

func TestRequirePermissionAttachesPrivilege(t *testing.T) {
	source := &fakePermissionSource{role: "admin", set: permission.Set{permission.Wildcard}}
	mw := NewAuthMiddleware(&fakeVerifier{userID: "user-42"}, source)

	var seen Privilege
	chain := mw.RequireAuth(mw.RequirePermission(permission.UsersView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		privilege, ok := PrivilegeFromContext(r.Context())
		require.True(t, ok)
		seen = privilege
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, "admin", seen.Role)
	assert.True(t, seen.Permissions.Contains(permission.RolesManage))
}
