package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-console/internal/model"
	"admin-console/internal/task"
)

type fakeAuditStore struct {
	mu        sync.Mutex
	entries   []model.AuditEntry
	insertErr error
	listErr   error
	total     int
}

func (f *fakeAuditStore) Insert(ctx context.Context, entry model.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) List(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.entries, f.total, nil
}

func TestAuditRecordRedactsAndPersists(t *testing.T) {
	store := &fakeAuditStore{}
	svc := NewAuditService(store, task.SyncRunner{})

	entry := EntryStart("req-1", "POST", "/api/v1/auth/login", "10.0.0.1", "curl/8.0")
	entry.StatusCode = 200
	entry.RequestBody = `{"email":"a@b.com","password":"secret123"}`
	entry.ResponseBody = `{"token":"jwt-value","user":{"email":"a@b.com"}}`

	svc.Record(entry)

	require.Len(t, store.entries, 1)
	stored := store.entries[0]
	assert.Equal(t, "req-1", stored.ID)
	assert.Contains(t, stored.RequestBody, `"password":"[REDACTED]"`)
	assert.Contains(t, stored.RequestBody, `"email":"a@b.com"`)
	assert.Contains(t, stored.ResponseBody, `"token":"[REDACTED]"`)
	assert.NotContains(t, stored.ResponseBody, "jwt-value")
}

// capturingRunner holds the submitted closure without executing it so a
// test can observe what runs on the request path versus the background.
type capturingRunner struct {
	name string
	fn   func(ctx context.Context)
}

func (r *capturingRunner) Submit(name string, fn func(ctx context.Context)) {
	r.name = name
	r.fn = fn
}

func TestAuditRecordRedactsOnBackgroundGoroutine(t *testing.T) {
	store := &fakeAuditStore{}
	runner := &capturingRunner{}
	svc := NewAuditService(store, runner)

	entry := EntryStart("req-3", "POST", "/api/v1/auth/login", "10.0.0.1", "curl/8.0")
	entry.RequestBody = `{"password":"secret123"}`

	svc.Record(entry)

	// Nothing has touched the store until the submitted work runs.
	require.NotNil(t, runner.fn)
	assert.Equal(t, "audit-insert", runner.name)
	assert.Empty(t, store.entries)

	runner.fn(context.Background())

	require.Len(t, store.entries, 1)
	assert.Contains(t, store.entries[0].RequestBody, `"password":"[REDACTED]"`)
	assert.NotContains(t, store.entries[0].RequestBody, "secret123")
}

func TestAuditRecordSwallowsInsertFailure(t *testing.T) {
	store := &fakeAuditStore{insertErr: errors.New("connection refused")}
	svc := NewAuditService(store, task.SyncRunner{})

	// Record must never panic or surface the store error.
	svc.Record(EntryStart("req-2", "GET", "/health", "", ""))
	assert.Empty(t, store.entries)
}

func TestAuditQueryBoundsPagination(t *testing.T) {
	store := &fakeAuditStore{total: 7}
	svc := NewAuditService(store, task.SyncRunner{})

	_, meta, err := svc.Query(context.Background(), model.AuditQuery{Page: 0, Limit: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 50, meta.Limit)
	assert.Equal(t, 7, meta.Total)
	assert.Equal(t, 1, meta.TotalPages)

	_, meta, err = svc.Query(context.Background(), model.AuditQuery{Page: 2, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 200, meta.Limit)
}

func TestAuditQuerySwapsInvertedDateRange(t *testing.T) {
	store := &fakeAuditStore{}
	svc := NewAuditService(store, task.SyncRunner{})

	from := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := svc.Query(context.Background(), model.AuditQuery{From: from, To: to})
	require.NoError(t, err)
}

func TestAuditQueryPropagatesStoreError(t *testing.T) {
	store := &fakeAuditStore{listErr: errors.New("boom")}
	svc := NewAuditService(store, task.SyncRunner{})

	_, _, err := svc.Query(context.Background(), model.AuditQuery{})
	assert.Error(t, err)
}
