package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanManage(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		owner   string
		isAdmin bool
		want    bool
	}{
		{"admin with any tokens", "", "tok1", true, true},
		{"admin with mismatched tokens", "tok2", "tok1", true, true},
		{"owner matches", "tok1", "tok1", false, true},
		{"owner matches after trim", "  tok1 ", "tok1", false, true},
		{"empty actor", "", "tok1", false, false},
		{"whitespace actor", "   ", "tok1", false, false},
		{"empty actor and empty owner", "", "", false, false},
		{"different actor", "tok2", "tok1", false, false},
		{"case differs", "TOK1", "tok1", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanManage(tt.actor, tt.owner, tt.isAdmin))
		})
	}
}

func TestCanManageRequest(t *testing.T) {
	sm, _ := newTestSessionManager()
	token, err := sm.Issue("admin")
	require.NoError(t, err)

	t.Run("admin cookie overrides ownership", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/notes/1", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

		assert.True(t, CanManageRequest(req, sm, "", "tok1"))
	})

	t.Run("invalid cookie falls back to ownership", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/notes/1", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})

		assert.False(t, CanManageRequest(req, sm, "tok2", "tok1"))
		assert.True(t, CanManageRequest(req, sm, "tok1", "tok1"))
	})

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/notes/1", nil)

		assert.False(t, IsAdminRequest(req, sm))
		assert.False(t, CanManageRequest(req, sm, "", "tok1"))
	})
}
