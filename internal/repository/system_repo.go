package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"admin-console/internal/model"
)

// SystemRepository backs the admin database-introspection surface. It is
// read-only by construction: every statement it issues is a SELECT.
type SystemRepository struct {
	pool *pgxpool.Pool
}

func NewSystemRepository(pool *pgxpool.Pool) *SystemRepository {
	return &SystemRepository{pool: pool}
}

// ListTables returns every base table in the public schema with its
// current row count.
func (r *SystemRepository) ListTables(ctx context.Context) ([]model.TableInfo, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]model.TableInfo, 0, len(names))
	for _, name := range names {
		var count int64
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pgx.Identifier{name}.Sanitize())
		if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("count rows of %s: %w", name, err)
		}
		tables = append(tables, model.TableInfo{Name: name, RowCount: count})
	}
	return tables, nil
}

// TableRecords returns a page of raw rows from table as column-keyed
// maps. The table name is only ever interpolated after it has been
// confirmed to exist in the public schema, and then through a sanitized
// identifier.
func (r *SystemRepository) TableRecords(ctx context.Context, table string, limit int, offset int) ([]map[string]any, int, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_type = 'BASE TABLE' AND table_name = $1
		)`, table).Scan(&exists)
	if err != nil {
		return nil, 0, fmt.Errorf("check table %s: %w", table, err)
	}
	if !exists {
		return nil, 0, model.ErrTableNotFound
	}

	ident := pgx.Identifier{table}.Sanitize()

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, ident)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rows of %s: %w", table, err)
	}

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT * FROM %s LIMIT $1 OFFSET $2`, ident), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select from %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	records := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, 0, fmt.Errorf("read row of %s: %w", table, err)
		}
		record := make(map[string]any, len(fields))
		for i, field := range fields {
			record[field.Name] = values[i]
		}
		records = append(records, record)
	}
	return records, total, rows.Err()
}
