package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/lulusspp/lulus-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-sessions-0123456789abcdef"

var sessionEpoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestSessionManager() (*SessionManager, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(sessionEpoch)
	return NewSessionManager(testSecret, DefaultSessionLifetime, clock), clock
}

func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, claims *models.SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func adminClaims(now time.Time) *models.SessionClaims {
	return &models.SessionClaims{
		Role:     models.RoleAdmin,
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestSessionManager_IssueAndVerify(t *testing.T) {
	sm, _ := newTestSessionManager()

	token, err := sm.Issue("admin")
	require.NoError(t, err)

	claims, ok := sm.Verify(token)
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "admin", claims.Username)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, sessionEpoch, claims.IssuedAt.Time.UTC())
	assert.Equal(t, 7*24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestSessionManager_IssueUniqueTokenIDs(t *testing.T) {
	sm, _ := newTestSessionManager()

	first, err := sm.Issue("admin")
	require.NoError(t, err)
	second, err := sm.Issue("admin")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSessionManager_IssueWithoutSecret(t *testing.T) {
	sm := NewSessionManager("", DefaultSessionLifetime, clockwork.NewFakeClockAt(sessionEpoch))

	_, err := sm.Issue("admin")
	assert.ErrorIs(t, err, models.ErrMissingSigningKey)
}

func TestSessionManager_Expiry(t *testing.T) {
	sm, clock := newTestSessionManager()

	token, err := sm.Issue("admin")
	require.NoError(t, err)

	clock.Advance(7*24*time.Hour - time.Second)
	_, result := sm.Inspect(token)
	assert.Equal(t, VerifyValid, result)

	clock.Advance(2 * time.Second)
	_, result = sm.Inspect(token)
	assert.Equal(t, VerifyExpired, result)

	_, ok := sm.Verify(token)
	assert.False(t, ok)
}

func TestSessionManager_Inspect(t *testing.T) {
	sm, _ := newTestSessionManager()
	now := sessionEpoch

	wrongRole := adminClaims(now)
	wrongRole.Role = "editor"

	noUsername := adminClaims(now)
	noUsername.Username = ""

	noExpiry := adminClaims(now)
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
		want  VerifyResult
	}{
		{
			name:  "valid",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims(now)),
			want:  VerifyValid,
		},
		{
			name:  "different secret",
			token: signClaims(t, jwt.SigningMethodHS256, []byte("some-other-secret-value-0123456789abcdef"), adminClaims(now)),
			want:  VerifyBadSignature,
		},
		{
			name:  "HS512 with same secret",
			token: signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), adminClaims(now)),
			want:  VerifyBadSignature,
		},
		{
			name:  "alg none",
			token: signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, adminClaims(now)),
			want:  VerifyBadSignature,
		},
		{
			name:  "role is not admin",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), wrongRole),
			want:  VerifyWrongRole,
		},
		{
			name:  "missing username",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), noUsername),
			want:  VerifyMalformed,
		},
		{
			name:  "missing expiry",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
			want:  VerifyMalformed,
		},
		{
			name:  "garbage",
			token: "not-a-token",
			want:  VerifyMalformed,
		},
		{
			name:  "empty",
			token: "",
			want:  VerifyMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, result := sm.Inspect(tt.token)
			assert.Equal(t, tt.want, result, "got %s", result)
			if tt.want == VerifyValid {
				assert.NotNil(t, claims)
			} else {
				assert.Nil(t, claims)
			}
		})
	}
}

func TestSessionManager_InvalidOutcomesLookTheSame(t *testing.T) {
	sm, clock := newTestSessionManager()

	expired, err := sm.Issue("admin")
	require.NoError(t, err)
	clock.Advance(8 * 24 * time.Hour)

	wrongRole := adminClaims(clock.Now())
	wrongRole.Role = "user"

	tokens := []string{
		expired,
		signClaims(t, jwt.SigningMethodHS256, []byte("another-secret-entirely-0123456789abcdef"), adminClaims(clock.Now())),
		signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), wrongRole),
	}

	for _, token := range tokens {
		claims, ok := sm.Verify(token)
		assert.False(t, ok)
		assert.Nil(t, claims)
	}
}

func TestSessionManager_VerifyWithoutSecret(t *testing.T) {
	issuer, _ := newTestSessionManager()
	token, err := issuer.Issue("admin")
	require.NoError(t, err)

	sm := NewSessionManager("", DefaultSessionLifetime, clockwork.NewFakeClockAt(sessionEpoch))
	_, result := sm.Inspect(token)
	assert.Equal(t, VerifyBadSignature, result)
}

func TestNewSessionManager_DefaultLifetime(t *testing.T) {
	sm := NewSessionManager(testSecret, 0, nil)
	assert.Equal(t, DefaultSessionLifetime, sm.Lifetime())
}

func TestVerifyResult_String(t *testing.T) {
	assert.Equal(t, "valid", VerifyValid.String())
	assert.Equal(t, "expired", VerifyExpired.String())
	assert.Equal(t, "bad_signature", VerifyBadSignature.String())
	assert.Equal(t, "wrong_role", VerifyWrongRole.String())
	assert.Equal(t, "malformed", VerifyMalformed.String())
}
