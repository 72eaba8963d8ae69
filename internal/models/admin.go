package models

import "time"

// AdminCredential is the single administrator record held by the credential store
type AdminCredential struct {
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
