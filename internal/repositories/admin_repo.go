package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lulusspp/lulus-api/internal/database"
	"github.com/lulusspp/lulus-api/internal/models"
)

// AdminRepository is the credential store for the administrator account
type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAdminRow(scanner rowScanner) (*models.AdminCredential, error) {
	var admin models.AdminCredential
	var passwordHash *string

	err := scanner.Scan(&admin.Username, &passwordHash, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		admin.PasswordHash = *passwordHash
	}

	return &admin, nil
}

func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.AdminCredential, error) {
	query := `
		SELECT username, password_hash, created_at, updated_at
		FROM admins WHERE username = $1
		LIMIT 1
	`
	return scanAdminRow(r.pool.QueryRow(ctx, query, username))
}

// Create inserts a new admin, returning models.ErrConflict if the username is taken
func (r *AdminRepository) Create(ctx context.Context, username, passwordHash string) (*models.AdminCredential, error) {
	query := `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
		RETURNING username, password_hash, created_at, updated_at
	`
	admin, err := scanAdminRow(r.pool.QueryRow(ctx, query, username, passwordHash))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

// Upsert creates the admin or replaces its password hash
func (r *AdminRepository) Upsert(ctx context.Context, username, passwordHash string) (*models.AdminCredential, error) {
	query := `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, updated_at = CURRENT_TIMESTAMP
		RETURNING username, password_hash, created_at, updated_at
	`
	admin, err := scanAdminRow(r.pool.QueryRow(ctx, query, username, passwordHash))
	if err != nil {
		return nil, fmt.Errorf("upsert admin: %w", err)
	}
	return admin, nil
}

// UpdatePassword replaces the hash of an existing admin, returning models.ErrNotFound if absent
func (r *AdminRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE admins SET password_hash = $2, updated_at = CURRENT_TIMESTAMP
		WHERE username = $1
	`, username, passwordHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Count returns how many admin records exist
func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}
