package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAdmin(t *testing.T) {
	sm, _ := newTestSessionManager()
	token, err := sm.Issue("admin")
	require.NoError(t, err)

	var seenUsername string
	handler := RequireAdmin(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := SessionFromContext(r.Context())
		require.NotNil(t, claims)
		seenUsername = claims.Username
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		cookie     string
		wantStatus int
	}{
		{"valid session", token, http.StatusOK},
		{"forged session", "forged.token.value", http.StatusUnauthorized},
		{"no cookie", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUsername = ""
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "admin", seenUsername)
				return
			}

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Unauthorized", body["error"])
			assert.Empty(t, seenUsername)
		})
	}
}

func TestSessionFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, SessionFromContext(req.Context()))
}
