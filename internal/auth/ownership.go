// Package auth holds the admin session codec, its cookie and middleware helpers,
// and the ownership predicate. CanManage and CanManageRequest are called by the
// content handlers (notes, tips, soalan, posts, comments) before an edit or delete.
package auth

import (
	"net/http"
	"strings"

	"github.com/lulusspp/lulus-api/internal/models"
)

// SessionVerifier verifies admin session tokens
type SessionVerifier interface {
	Verify(token string) (*models.SessionClaims, bool)
}

// CanManage decides whether an actor may modify or delete a piece of user-owned content.
// Admins always may. Anyone else only when their trimmed, non-empty author token matches
// the one stored with the content.
func CanManage(actorToken, ownerToken string, isAdmin bool) bool {
	if isAdmin {
		return true
	}

	actor := strings.TrimSpace(actorToken)
	return actor != "" && actor == ownerToken
}

// IsAdminRequest reports whether the request carries a valid admin session cookie
func IsAdminRequest(r *http.Request, sessions SessionVerifier) bool {
	token, err := GetSessionCookie(r)
	if err != nil || token == "" {
		return false
	}
	_, ok := sessions.Verify(token)
	return ok
}

// CanManageRequest resolves admin status from the request's session cookie and applies CanManage
func CanManageRequest(r *http.Request, sessions SessionVerifier, actorToken, ownerToken string) bool {
	return CanManage(actorToken, ownerToken, IsAdminRequest(r, sessions))
}
