package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"admin-console/internal/credential"
	"admin-console/internal/permission"
)

// Seed ensures the two built-in roles exist and, when the users table is
// empty, creates the initial administrator account. It is idempotent and
// safe to run on every startup.
func (db *DB) Seed(ctx context.Context, adminEmail string, adminPassword string) error {
	adminPerms, err := permission.Set{permission.Wildcard}.Encode()
	if err != nil {
		return fmt.Errorf("encode admin permissions: %w", err)
	}
	userPerms, err := permission.Set{}.Encode()
	if err != nil {
		return fmt.Errorf("encode user permissions: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO roles (name, description, permissions)
		VALUES
			('admin', 'Full administrative access', $1),
			('user', 'Regular account with no administrative access', $2)
		ON CONFLICT (name) DO NOTHING
	`, adminPerms, userPerms)
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	var userCount int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&userCount); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if userCount > 0 {
		return nil
	}

	if adminPassword == "" {
		slog.Warn("users table is empty and SEED_ADMIN_PASSWORD is unset; no admin account created")
		return nil
	}

	hash, err := credential.Hash(adminPassword)
	if err != nil {
		return fmt.Errorf("hash seed admin password: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role_id)
		SELECT $1, $2, $3, id FROM roles WHERE name = 'admin'
	`, uuid.NewString(), adminEmail, hash)
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	slog.Info("seeded initial admin account", "email", adminEmail)
	return nil
}
