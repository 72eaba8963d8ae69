package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lulusspp/lulus-api/internal/models"
)

// LoginAttemptStore persists ledger records. Mutate must run fn under a per-key lock
// so that concurrent attempts on one key never lose an update.
type LoginAttemptStore interface {
	Mutate(ctx context.Context, key string, now time.Time, fn func(rec *models.LoginAttemptRecord) (models.LedgerAction, error)) (*models.LoginAttemptRecord, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// LedgerConfig holds the brute-force thresholds
type LedgerConfig struct {
	Window        time.Duration
	MaxFailures   int
	BlockDuration time.Duration
	StaleAfter    time.Duration
}

// DefaultLedgerConfig returns the production thresholds
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Window:        15 * time.Minute,
		MaxFailures:   5,
		BlockDuration: 15 * time.Minute,
		StaleAfter:    24 * time.Hour,
	}
}

// LoginLedger tracks failed admin logins per (client IP, username) key
type LoginLedger struct {
	store  LoginAttemptStore
	config LedgerConfig
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewLoginLedger creates a new LoginLedger. A nil clock uses the real clock.
func NewLoginLedger(store LoginAttemptStore, config LedgerConfig, clock clockwork.Clock, logger *slog.Logger) *LoginLedger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LoginLedger{
		store:  store,
		config: config,
		clock:  clock,
		logger: logger,
	}
}

// windowExpired reports whether rec's window has lapsed and it is not blocked
func (l *LoginLedger) windowExpired(rec *models.LoginAttemptRecord, now time.Time) bool {
	return !rec.IsBlocked(now) && now.Sub(rec.WindowStartedAt) > l.config.Window
}

// Check opens the record for key, starting a fresh window if the previous one lapsed.
// It returns the remaining block time, or zero if the attempt may proceed.
func (l *LoginLedger) Check(ctx context.Context, key string) (time.Duration, error) {
	now := l.clock.Now()

	rec, err := l.store.Mutate(ctx, key, now, func(rec *models.LoginAttemptRecord) (models.LedgerAction, error) {
		if l.windowExpired(rec, now) {
			rec.ResetWindow(now)
		}
		return models.LedgerSave, nil
	})
	if err != nil {
		return 0, fmt.Errorf("open login attempt record: %w", err)
	}

	if rec.IsBlocked(now) {
		return rec.BlockedUntil.Sub(now), nil
	}
	return 0, nil
}

// RecordFailure counts a failed attempt. If the key is now blocked, the remaining
// block time is returned. Attempts made while already blocked are not counted
// and do not extend the block.
func (l *LoginLedger) RecordFailure(ctx context.Context, key string) (time.Duration, error) {
	now := l.clock.Now()

	rec, err := l.store.Mutate(ctx, key, now, func(rec *models.LoginAttemptRecord) (models.LedgerAction, error) {
		if rec.IsBlocked(now) {
			return models.LedgerSave, nil
		}
		if l.windowExpired(rec, now) {
			rec.ResetWindow(now)
		}

		rec.FailCount++
		rec.UpdatedAt = now
		if rec.FailCount >= l.config.MaxFailures {
			until := now.Add(l.config.BlockDuration)
			rec.BlockedUntil = &until
		}
		return models.LedgerSave, nil
	})
	if err != nil {
		return 0, fmt.Errorf("record failed login attempt: %w", err)
	}

	if rec.IsBlocked(now) {
		return rec.BlockedUntil.Sub(now), nil
	}
	return 0, nil
}

// RecordSuccess clears the record for key and purges records untouched for StaleAfter.
// The delete takes the same row lock as a failure, so a racing failure on the key
// either lands before the clear or starts a fresh window after it.
func (l *LoginLedger) RecordSuccess(ctx context.Context, key string) error {
	now := l.clock.Now()

	_, err := l.store.Mutate(ctx, key, now, func(*models.LoginAttemptRecord) (models.LedgerAction, error) {
		return models.LedgerDelete, nil
	})
	if err != nil {
		return fmt.Errorf("clear login attempt record: %w", err)
	}

	purged, err := l.store.DeleteStale(ctx, now.Add(-l.config.StaleAfter))
	if err != nil {
		return fmt.Errorf("purge stale login attempt records: %w", err)
	}
	if purged > 0 {
		l.logger.Debug("purged stale login attempt records", slog.Int64("count", purged))
	}

	return nil
}
