package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lulusspp/lulus-api/internal/models"
)

// DefaultSessionLifetime is how long an admin session token stays valid
const DefaultSessionLifetime = 7 * 24 * time.Hour

// VerifyResult is the internal outcome of inspecting a session token.
// Callers outside this package should only ever see valid or invalid.
type VerifyResult int

const (
	VerifyValid VerifyResult = iota
	VerifyExpired
	VerifyBadSignature
	VerifyWrongRole
	VerifyMalformed
)

func (r VerifyResult) String() string {
	switch r {
	case VerifyValid:
		return "valid"
	case VerifyExpired:
		return "expired"
	case VerifyBadSignature:
		return "bad_signature"
	case VerifyWrongRole:
		return "wrong_role"
	default:
		return "malformed"
	}
}

// SessionManager issues and verifies stateless admin session tokens (HS256 JWT)
type SessionManager struct {
	secret   []byte
	lifetime time.Duration
	clock    clockwork.Clock
}

// NewSessionManager creates a SessionManager. A nil clock uses the real clock.
func NewSessionManager(secret string, lifetime time.Duration, clock clockwork.Clock) *SessionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &SessionManager{
		secret:   []byte(secret),
		lifetime: lifetime,
		clock:    clock,
	}
}

// Lifetime returns the session validity period
func (sm *SessionManager) Lifetime() time.Duration {
	return sm.lifetime
}

// Issue signs a new admin session token for username
func (sm *SessionManager) Issue(username string) (string, error) {
	if len(sm.secret) == 0 {
		return "", models.ErrMissingSigningKey
	}

	now := sm.clock.Now()
	claims := &models.SessionClaims{
		Role:     models.RoleAdmin,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Inspect parses a token and classifies the outcome. Claims are only returned for VerifyValid.
func (sm *SessionManager) Inspect(tokenString string) (*models.SessionClaims, VerifyResult) {
	if tokenString == "" {
		return nil, VerifyMalformed
	}
	if len(sm.secret) == 0 {
		return nil, VerifyBadSignature
	}

	claims := &models.SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) {
			return sm.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sm.clock.Now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, VerifyBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, VerifyExpired
		default:
			return nil, VerifyMalformed
		}
	}

	if claims.Role != models.RoleAdmin {
		return nil, VerifyWrongRole
	}
	if claims.Username == "" {
		return nil, VerifyMalformed
	}

	return claims, VerifyValid
}

// Verify reports whether the token is a valid admin session
func (sm *SessionManager) Verify(tokenString string) (*models.SessionClaims, bool) {
	claims, result := sm.Inspect(tokenString)
	if result != VerifyValid {
		return nil, false
	}
	return claims, true
}
