package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"admin-console/internal/model"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Insert(ctx context.Context, entry model.AuditEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs
		   (id, timestamp, method, path, status_code, response_time_ms,
		    user_id, ip_address, user_agent, request_body, response_body, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID, entry.Timestamp, entry.Method, entry.Path, entry.StatusCode,
		entry.ResponseTimeMs, entry.UserID, nullable(entry.IPAddress),
		nullable(entry.UserAgent), nullable(entry.RequestBody),
		nullable(entry.ResponseBody), nullable(entry.ErrorMessage))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error) {
	where := make([]string, 0, 5)
	args := make([]any, 0, 7)

	if method := strings.ToUpper(strings.TrimSpace(query.Method)); method != "" {
		args = append(args, method)
		where = append(where, fmt.Sprintf("method = $%d", len(args)))
	}
	if query.StatusCode != nil {
		args = append(args, *query.StatusCode)
		where = append(where, fmt.Sprintf("status_code = $%d", len(args)))
	}
	if userID := strings.TrimSpace(query.UserID); userID != "" {
		args = append(args, userID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if !query.From.IsZero() {
		args = append(args, query.From)
		where = append(where, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !query.To.IsZero() {
		args = append(args, query.To)
		where = append(where, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, timestamp, method, path, status_code, response_time_ms,
		        user_id, ip_address, user_agent, request_body, response_body, error_message
		 FROM audit_logs%s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
			clause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		var ip, agent, reqBody, respBody, errMsg *string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Method, &e.Path, &e.StatusCode,
			&e.ResponseTimeMs, &e.UserID, &ip, &agent, &reqBody, &respBody, &errMsg); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		e.IPAddress = deref(ip)
		e.UserAgent = deref(agent)
		e.RequestBody = deref(reqBody)
		e.ResponseBody = deref(respBody)
		e.ErrorMessage = deref(errMsg)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
