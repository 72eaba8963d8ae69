package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lulusspp/lulus-api/internal/database"
	"github.com/lulusspp/lulus-api/internal/models"
)

const selectLoginAttempt = `
	SELECT key, fail_count, window_started_at, blocked_until, updated_at
	FROM auth_rate_limits
	WHERE key = $1
	LIMIT 1`

// LoginAttemptRepository persists the per-key login attempt ledger
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Mutate loads the record for key under a row lock, creating a fresh one if missing,
// hands it to fn, and saves or deletes it according to the returned action.
// Concurrent callers on the same key are serialized by SELECT ... FOR UPDATE.
func (r *LoginAttemptRepository) Mutate(
	ctx context.Context,
	key string,
	now time.Time,
	fn func(rec *models.LoginAttemptRecord) (models.LedgerAction, error),
) (*models.LoginAttemptRecord, error) {
	var result *models.LoginAttemptRecord

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO auth_rate_limits (key, fail_count, window_started_at, blocked_until, updated_at)
			VALUES ($1, 0, $2, NULL, $2)
			ON CONFLICT (key) DO NOTHING
		`, key, now)
		if err != nil {
			return fmt.Errorf("insert login attempt record: %w", err)
		}

		rec, err := scanLoginAttemptRow(tx.QueryRow(ctx, selectLoginAttempt+` FOR UPDATE`, key))
		if err != nil {
			return fmt.Errorf("lock login attempt record: %w", err)
		}

		action, err := fn(rec)
		if err != nil {
			return err
		}

		switch action {
		case models.LedgerDelete:
			if _, err := tx.Exec(ctx, `DELETE FROM auth_rate_limits WHERE key = $1`, key); err != nil {
				return fmt.Errorf("delete login attempt record: %w", err)
			}
			result = nil
		default:
			_, err := tx.Exec(ctx, `
				UPDATE auth_rate_limits
				SET fail_count = $2, window_started_at = $3, blocked_until = $4, updated_at = $5
				WHERE key = $1
			`, key, rec.FailCount, rec.WindowStartedAt, rec.BlockedUntil, rec.UpdatedAt)
			if err != nil {
				return fmt.Errorf("update login attempt record: %w", database.MapPostgresError(err))
			}
			result = rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Delete removes the record for key, if any. Used by the admin CLI to lift a block.
func (r *LoginAttemptRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM auth_rate_limits WHERE key = $1`, key)
	return err
}

// DeleteStale removes records not updated since before
func (r *LoginAttemptRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM auth_rate_limits WHERE updated_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanLoginAttemptRow(scanner rowScanner) (*models.LoginAttemptRecord, error) {
	var rec models.LoginAttemptRecord
	err := scanner.Scan(&rec.Key, &rec.FailCount, &rec.WindowStartedAt, &rec.BlockedUntil, &rec.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &rec, nil
}
