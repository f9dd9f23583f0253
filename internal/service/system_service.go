package service

import (
	"context"
	"regexp"
	"runtime"
	"strings"
	"time"

	"admin-console/internal/model"
	"admin-console/pkg/apierror"
)

type systemStore interface {
	ListTables(ctx context.Context) ([]model.TableInfo, error)
	TableRecords(ctx context.Context, table string, limit int, offset int) ([]map[string]any, int, error)
}

type systemProbe interface {
	Health(ctx context.Context) error
	Stats() model.DatabaseStats
}

// tableNamePattern is the shape of an unquoted postgres identifier. The
// store re-checks existence against the catalog; this guard just rejects
// obvious garbage before it reaches a query.
var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// hiddenColumns are never returned raw through the introspection surface,
// mirroring the serialization rule on the account model.
var hiddenColumns = map[string]struct{}{
	"password_hash": {},
}

// SystemService backs the admin system-monitoring surface: table
// introspection and a database health snapshot.
type SystemService struct {
	store   systemStore
	probe   systemProbe
	started time.Time
}

func NewSystemService(store systemStore, probe systemProbe) *SystemService {
	return &SystemService{store: store, probe: probe, started: time.Now()}
}

func (s *SystemService) Tables(ctx context.Context) ([]model.TableInfo, error) {
	return s.store.ListTables(ctx)
}

// TableRecords returns a page of raw rows from one table, with sensitive
// columns masked.
func (s *SystemService) TableRecords(ctx context.Context, table string, query model.TableRecordsQuery) ([]map[string]any, *model.Meta, error) {
	table = strings.TrimSpace(table)
	if !tableNamePattern.MatchString(table) {
		return nil, nil, apierror.BadRequest("invalid table name", table)
	}

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 25
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	records, total, err := s.store.TableRecords(ctx, table, query.Limit, (query.Page-1)*query.Limit)
	if err != nil {
		return nil, nil, err
	}

	for _, record := range records {
		for column := range record {
			if _, hidden := hiddenColumns[column]; hidden && record[column] != nil {
				record[column] = RedactionMarker
			}
		}
	}
	return records, model.NewMeta(query.Page, query.Limit, total), nil
}

// Health reports the database reachability and pool snapshot. It never
// fails; an unreachable database degrades the status instead.
func (s *SystemService) Health(ctx context.Context) model.SystemHealth {
	status := "ok"
	if err := s.probe.Health(ctx); err != nil {
		status = "degraded"
	}

	return model.SystemHealth{
		Status:        status,
		Database:      s.probe.Stats(),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
}
