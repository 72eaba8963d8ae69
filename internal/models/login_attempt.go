package models

import (
	"strings"
	"time"
)

// LoginAttemptRecord tracks failed admin logins for one (client IP, username) key
type LoginAttemptRecord struct {
	Key             string     `db:"key"`
	FailCount       int        `db:"fail_count"`
	WindowStartedAt time.Time  `db:"window_started_at"`
	BlockedUntil    *time.Time `db:"blocked_until"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// IsBlocked reports whether the record is inside an active block at now.
func (r *LoginAttemptRecord) IsBlocked(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

// ResetWindow starts a fresh window at now, clearing any count and block.
func (r *LoginAttemptRecord) ResetWindow(now time.Time) {
	r.FailCount = 0
	r.WindowStartedAt = now
	r.BlockedUntil = nil
	r.UpdatedAt = now
}

// LoginAttemptKey builds the ledger key from the client IP and attempted username.
func LoginAttemptKey(clientIP, username string) string {
	return strings.ToLower(clientIP) + ":" + strings.ToLower(username)
}

// LedgerAction tells the store what to do with a record after it has been mutated
type LedgerAction int

const (
	// LedgerSave persists the mutated record
	LedgerSave LedgerAction = iota
	// LedgerDelete removes the record, returning the key to the fresh state
	LedgerDelete
)
