package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveWithSecurityHeaders(config SecurityHeadersConfig, req *http.Request) *httptest.ResponseRecorder {
	handler := SecurityHeaders(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := serveWithSecurityHeaders(DefaultSecurityHeadersConfig("development"), httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Content-Security-Policy", apiCSP},
		{"Cross-Origin-Opener-Policy", "same-origin"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.Header().Get(tt.header))
		})
	}
	assert.Empty(t, w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTSOnlyBehindTLSInProduction(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	assert.Empty(t, serveWithSecurityHeaders(DefaultSecurityHeadersConfig("production"), plain).Header().Get("Strict-Transport-Security"))

	forwarded := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "https")
	w := serveWithSecurityHeaders(DefaultSecurityHeadersConfig("production"), forwarded)
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))

	dev := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	dev.Header.Set("X-Forwarded-Proto", "https")
	assert.Empty(t, serveWithSecurityHeaders(DefaultSecurityHeadersConfig("development"), dev).Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_SessionResponsesNotCached(t *testing.T) {
	w := serveWithSecurityHeaders(DefaultSecurityHeadersConfig("production"), httptest.NewRequest(http.MethodPost, "/api/auth", nil))

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
}
