package services

import (
	"crypto/subtle"

	"github.com/lulusspp/lulus-api/internal/models"
	pkgauth "github.com/lulusspp/lulus-api/pkg/auth"
)

// RecoveryPolicy is the disaster-recovery escape hatch for a lost or corrupted admin
// credential. When the admin table is empty, or the recovery username's stored hash is not
// a well-formed bcrypt hash, the fixed recovery pair may log in, bypass an active block,
// and re-provision the credential.
type RecoveryPolicy struct {
	Enabled  bool
	Username string
	Password string
}

// Matches reports whether username and password are exactly the recovery pair
func (p RecoveryPolicy) Matches(username, password string) bool {
	if !p.Enabled || p.Username == "" || p.Password == "" {
		return false
	}

	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(p.Username)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(p.Password)) == 1
	return userMatch && passMatch
}

// IsEligibleForRecovery reports whether a login attempt qualifies for the recovery bypass.
// stored is nil when no credential exists for username; adminCount is the number of
// admin records in the whole store. A missing credential only qualifies when the store
// is empty, so a healthy admin under another name is never shadowed.
func (p RecoveryPolicy) IsEligibleForRecovery(username, password string, stored *models.AdminCredential, adminCount int) bool {
	if !p.Matches(username, password) {
		return false
	}
	if stored != nil {
		return !pkgauth.IsWellFormedHash(stored.PasswordHash)
	}
	return adminCount == 0
}
