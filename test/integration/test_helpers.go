//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"admin-console/internal/config"
	"admin-console/internal/credential"
	"admin-console/internal/handler"
	"admin-console/internal/middleware"
	"admin-console/internal/model"
	"admin-console/internal/permission"
	"admin-console/internal/router"
	"admin-console/internal/service"
	"admin-console/internal/task"
	"admin-console/internal/token"
)

// In-memory directories standing in for the postgres repositories. They
// enforce the same uniqueness and not-found semantics, so the full HTTP
// pipeline runs against them unchanged.

type memUsers struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]model.User{}}
}

func (m *memUsers) FindByID(ctx context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memUsers) Create(ctx context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return model.ErrUserAlreadyExists
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) Update(ctx context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return model.ErrUserNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) List(ctx context.Context, query model.UserQuery) ([]model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memUsers) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

type memRoles struct {
	mu    sync.Mutex
	roles map[int]model.Role
}

func newMemRoles() *memRoles {
	return &memRoles{roles: map[int]model.Role{
		1: {ID: 1, Name: "admin", Permissions: permission.Set{permission.Wildcard}},
		2: {ID: 2, Name: "user", Permissions: permission.Set{}},
	}}
}

func (m *memRoles) FindByID(ctx context.Context, id int) (model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return model.Role{}, model.ErrRoleNotFound
	}
	return r, nil
}

func (m *memRoles) FindByName(ctx context.Context, name string) (model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return model.Role{}, model.ErrRoleNotFound
}

func (m *memRoles) List(ctx context.Context) ([]model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRoles) Create(ctx context.Context, role model.Role) (model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maxID := 0
	for _, r := range m.roles {
		if r.Name == role.Name {
			return model.Role{}, model.ErrRoleAlreadyExists
		}
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	role.ID = maxID + 1
	m.roles[role.ID] = role
	return role, nil
}

func (m *memRoles) Update(ctx context.Context, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[role.ID]; !ok {
		return model.ErrRoleNotFound
	}
	m.roles[role.ID] = role
	return nil
}

func (m *memRoles) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return model.ErrRoleNotFound
	}
	delete(m.roles, id)
	return nil
}

type memAudits struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (m *memAudits) Insert(ctx context.Context, entry model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAudits) List(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, len(m.entries), nil
}

type memSystem struct {
	users  *memUsers
	audits *memAudits
}

func (m *memSystem) ListTables(ctx context.Context) ([]model.TableInfo, error) {
	m.users.mu.Lock()
	userCount := len(m.users.users)
	m.users.mu.Unlock()
	m.audits.mu.Lock()
	auditCount := len(m.audits.entries)
	m.audits.mu.Unlock()

	return []model.TableInfo{
		{Name: "audit_logs", RowCount: int64(auditCount)},
		{Name: "roles", RowCount: 2},
		{Name: "users", RowCount: int64(userCount)},
	}, nil
}

func (m *memSystem) TableRecords(ctx context.Context, table string, limit int, offset int) ([]map[string]any, int, error) {
	if table != "users" {
		return nil, 0, model.ErrTableNotFound
	}

	m.users.mu.Lock()
	defer m.users.mu.Unlock()
	records := make([]map[string]any, 0, len(m.users.users))
	for _, u := range m.users.users {
		records = append(records, map[string]any{
			"id":            u.ID,
			"email":         u.Email,
			"password_hash": u.PasswordHash,
		})
	}
	return records, len(records), nil
}

type okHealth struct{}

func (okHealth) Health(ctx context.Context) error { return nil }

func (okHealth) Stats() model.DatabaseStats {
	return model.DatabaseStats{TotalConns: 1, IdleConns: 1, MaxConns: 1}
}

type pipeline struct {
	server  *httptest.Server
	users   *memUsers
	audits  *memAudits
	adminID string
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	users := newMemUsers()
	roles := newMemRoles()
	audits := &memAudits{}

	hash, err := credential.Hash("admin-password-1")
	require.NoError(t, err)
	adminID := uuid.NewString()
	require.NoError(t, users.Create(context.Background(), model.User{
		ID:           adminID,
		Email:        "admin@example.com",
		PasswordHash: hash,
		RoleID:       1,
		CreatedAt:    time.Now().UTC(),
	}))

	tokens, err := token.New([]byte("integration-test-secret"), time.Hour)
	require.NoError(t, err)

	runner := task.SyncRunner{}
	authService := service.NewAuthService(users, roles, tokens, runner)
	adminService := service.NewAdminService(users, roles)
	auditService := service.NewAuditService(audits, runner)
	systemService := service.NewSystemService(&memSystem{users: users, audits: audits}, okHealth{})

	cfg := &config.Config{
		RequestTimeout:   5 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	h := router.New(cfg,
		middleware.NewAuthMiddleware(tokens, adminService),
		middleware.NewAuditMiddleware(auditService),
		router.Handlers{
			Auth:       handler.NewAuthHandler(authService),
			Admin:      handler.NewAdminHandler(adminService, auditService),
			Permission: handler.NewPermissionHandler(adminService),
			System:     handler.NewSystemHandler(systemService),
		},
		okHealth{},
	)

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return &pipeline{server: server, users: users, audits: audits, adminID: adminID}
}

func (p *pipeline) do(t *testing.T, method string, path string, bearer string, body any) (*http.Response, model.APIResponse) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = raw
	}

	req, err := http.NewRequest(method, p.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded model.APIResponse
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (p *pipeline) login(t *testing.T, email string, password string) string {
	t.Helper()

	resp, decoded := p.do(t, http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := json.Marshal(decoded.Data)
	require.NoError(t, err)
	var login model.LoginResponse
	require.NoError(t, json.Unmarshal(raw, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}
