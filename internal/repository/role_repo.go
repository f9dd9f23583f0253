package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"admin-console/internal/model"
	"admin-console/internal/permission"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) FindByID(ctx context.Context, id int) (model.Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, permissions, created_at, updated_at
		 FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (model.Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, permissions, created_at, updated_at
		 FROM roles WHERE name = $1`, strings.TrimSpace(name))
	return scanRole(row)
}

func (r *RoleRepository) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, permissions, created_at, updated_at
		 FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]model.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) Create(ctx context.Context, role model.Role) (model.Role, error) {
	encoded, err := role.Permissions.Encode()
	if err != nil {
		return model.Role{}, fmt.Errorf("encode permissions: %w", err)
	}

	now := time.Now().UTC()
	err = r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, permissions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		role.Name, role.Description, encoded, now).Scan(&role.ID)
	if isUniqueViolation(err) {
		return model.Role{}, model.ErrRoleAlreadyExists
	}
	if err != nil {
		return model.Role{}, fmt.Errorf("create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return role, nil
}

func (r *RoleRepository) Update(ctx context.Context, role model.Role) error {
	encoded, err := role.Permissions.Encode()
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET description = $2, permissions = $3, updated_at = $4 WHERE id = $1`,
		role.ID, role.Description, encoded, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrRoleNotFound
	}
	return nil
}

// Delete refuses to remove a role that any user still references.
func (r *RoleRepository) Delete(ctx context.Context, id int) error {
	var assigned int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role_id = $1`, id).Scan(&assigned); err != nil {
		return fmt.Errorf("count role assignments: %w", err)
	}
	if assigned > 0 {
		return model.ErrRoleInUse
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrRoleNotFound
	}
	return nil
}

func scanRole(row pgx.Row) (model.Role, error) {
	var role model.Role
	var encoded string
	err := row.Scan(&role.ID, &role.Name, &role.Description, &encoded, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Role{}, model.ErrRoleNotFound
	}
	if err != nil {
		return model.Role{}, fmt.Errorf("scan role: %w", err)
	}

	role.Permissions, err = permission.ParseSet(encoded)
	if err != nil {
		return model.Role{}, fmt.Errorf("parse role permissions: %w", err)
	}
	return role, nil
}
