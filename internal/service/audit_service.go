package service

import (
	"context"
	"log/slog"
	"time"

	"admin-console/internal/model"
	"admin-console/internal/task"
)

type auditStore interface {
	Insert(ctx context.Context, entry model.AuditEntry) error
	List(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error)
}

// AuditService owns the request audit trail. Writes are fire-and-forget:
// the response has usually already reached the client by the time the
// insert runs, and a failed insert is logged and dropped.
type AuditService struct {
	store  auditStore
	runner task.Runner
}

func NewAuditService(store auditStore, runner task.Runner) *AuditService {
	return &AuditService{store: store, runner: runner}
}

// Record submits the entry for background persistence. Redaction of the
// captured bodies happens on the background goroutine so the request path
// pays nothing for large payloads. It never blocks on the write and never
// fails.
func (s *AuditService) Record(entry model.AuditEntry) {
	s.runner.Submit("audit-insert", func(ctx context.Context) {
		entry.RequestBody = Redact(entry.RequestBody)
		entry.ResponseBody = Redact(entry.ResponseBody)

		if err := s.store.Insert(ctx, entry); err != nil {
			slog.Error("audit entry insert failed", "request_id", entry.ID, "error", err)
		}
	})
}

// Query returns audit entries for the admin listing, newest first.
func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, *model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}
	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		query.From, query.To = query.To, query.From
	}

	entries, total, err := s.store.List(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	return entries, model.NewMeta(query.Page, query.Limit, total), nil
}

// EntryStart returns a partially filled entry for the middleware; the
// remaining fields are set once the response has been written.
func EntryStart(id string, method string, path string, ip string, userAgent string) model.AuditEntry {
	return model.AuditEntry{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Method:    method,
		Path:      path,
		IPAddress: ip,
		UserAgent: userAgent,
	}
}
