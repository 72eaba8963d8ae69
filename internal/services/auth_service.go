package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lulusspp/lulus-api/internal/auth"
	"github.com/lulusspp/lulus-api/internal/metrics"
	"github.com/lulusspp/lulus-api/internal/models"
	pkgauth "github.com/lulusspp/lulus-api/pkg/auth"
	pkglogger "github.com/lulusspp/lulus-api/pkg/logger"
)

// AdminRepository is the credential store used by the login flow
type AdminRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.AdminCredential, error)
	Upsert(ctx context.Context, username, passwordHash string) (*models.AdminCredential, error)
	Count(ctx context.Context) (int, error)
}

// SessionIssuer issues and verifies admin session tokens
type SessionIssuer interface {
	Issue(username string) (string, error)
	Inspect(token string) (*models.SessionClaims, auth.VerifyResult)
}

// AuthService handles admin login and session checks
type AuthService struct {
	admins      AdminRepository
	ledger      *LoginLedger
	sessions    SessionIssuer
	recovery    RecoveryPolicy
	timingDelay *auth.TimingDelay
	hashCost    int
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	admins AdminRepository,
	ledger *LoginLedger,
	sessions SessionIssuer,
	recovery RecoveryPolicy,
	timingDelay *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		admins:      admins,
		ledger:      ledger,
		sessions:    sessions,
		recovery:    recovery,
		timingDelay: timingDelay,
		hashCost:    pkgauth.BcryptCost,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SetHashCost overrides the bcrypt cost used when re-provisioning through recovery
func (s *AuthService) SetHashCost(cost int) {
	s.hashCost = cost
}

// LoginInput is a validated login request plus the client facts the ledger keys on
type LoginInput struct {
	Username  string
	Password  string
	ClientIP  string
	UserAgent string
	RequestID string
}

// LoginResult is returned on a successful login
type LoginResult struct {
	Username  string
	Token     string
	Recovered bool
}

// Login authenticates the admin. Failures return models.ErrUnauthorized, or a
// *models.LockoutError wrapping ErrUnauthorized when the failure triggered a block,
// or wrapping ErrRateLimitExceeded when the key was already blocked.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	start := time.Now()
	key := models.LoginAttemptKey(in.ClientIP, in.Username)

	admin, err := s.admins.GetByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		metrics.RecordLogin(metrics.LoginError)
		return nil, fmt.Errorf("look up admin: %w", err)
	}
	if errors.Is(err, models.ErrNotFound) {
		admin = nil
	}

	eligible, err := s.recoveryEligible(ctx, in, admin)
	if err != nil {
		metrics.RecordLogin(metrics.LoginError)
		return nil, err
	}
	if eligible {
		return s.recover(ctx, in, key)
	}

	blockedFor, err := s.ledger.Check(ctx, key)
	if err != nil {
		metrics.RecordLogin(metrics.LoginError)
		return nil, err
	}
	if blockedFor > 0 {
		lockout := &models.LockoutError{Err: models.ErrRateLimitExceeded, RetryAfter: blockedFor}
		s.audit(ctx, in, pkglogger.EventLoginBlocked, false, "blocked", lockout.RetryAfterSeconds())
		metrics.RecordLogin(metrics.LoginBlocked)
		return nil, lockout
	}

	if !s.passwordMatches(admin, in.Password) {
		retryAfter, err := s.ledger.RecordFailure(ctx, key)
		if err != nil {
			s.logger.Error("failed to record login failure",
				slog.String("request_id", in.RequestID),
				slog.Any("error", err))
		}
		s.timingDelay.WaitFrom(ctx, start)

		if retryAfter > 0 {
			lockout := &models.LockoutError{Err: models.ErrUnauthorized, RetryAfter: retryAfter}
			s.audit(ctx, in, pkglogger.EventLoginLockout, false, "invalid_credentials", lockout.RetryAfterSeconds())
			metrics.RecordLogin(metrics.LoginLockout)
			return nil, lockout
		}

		s.audit(ctx, in, pkglogger.EventLoginFailure, false, "invalid_credentials", 0)
		metrics.RecordLogin(metrics.LoginFailure)
		return nil, models.ErrUnauthorized
	}

	if err := s.ledger.RecordSuccess(ctx, key); err != nil {
		metrics.RecordLogin(metrics.LoginError)
		return nil, err
	}

	token, err := s.sessions.Issue(admin.Username)
	if err != nil {
		metrics.RecordLogin(metrics.LoginError)
		return nil, fmt.Errorf("issue session: %w", err)
	}

	s.audit(ctx, in, pkglogger.EventLoginSuccess, true, "", 0)
	metrics.RecordLogin(metrics.LoginSuccess)

	return &LoginResult{Username: admin.Username, Token: token}, nil
}

// recoveryEligible applies the recovery policy. The admin table is only counted
// when the recovery pair matches and no credential exists under that username.
func (s *AuthService) recoveryEligible(ctx context.Context, in LoginInput, admin *models.AdminCredential) (bool, error) {
	if !s.recovery.Matches(in.Username, in.Password) {
		return false, nil
	}

	count := 0
	if admin == nil {
		n, err := s.admins.Count(ctx)
		if err != nil {
			return false, fmt.Errorf("count admins: %w", err)
		}
		count = n
	}
	return s.recovery.IsEligibleForRecovery(in.Username, in.Password, admin, count), nil
}

// recover re-provisions the admin credential to the recovery pair, clears the
// ledger record for key, and logs the admin in regardless of any active block.
func (s *AuthService) recover(ctx context.Context, in LoginInput, key string) (*LoginResult, error) {
	hash, err := pkgauth.HashPasswordWithCost(s.recovery.Password, s.hashCost)
	if err != nil {
		metrics.RecordLogin(metrics.LoginError)
		return nil, fmt.Errorf("hash recovery password: %w", err)
	}

	admin, err := s.admins.Upsert(ctx, s.recovery.Username, hash)
	if err != nil {
		metrics.RecordLogin(metrics.LoginError)
		return nil, fmt.Errorf("re-provision admin: %w", err)
	}

	if err := s.ledger.RecordSuccess(ctx, key); err != nil {
		metrics.RecordLogin(metrics.LoginError)
		return nil, err
	}

	token, err := s.sessions.Issue(admin.Username)
	if err != nil {
		metrics.RecordLogin(metrics.LoginError)
		return nil, fmt.Errorf("issue session: %w", err)
	}

	s.logger.Warn("admin credential re-provisioned through recovery",
		slog.String("request_id", in.RequestID),
		slog.String("ip_address", in.ClientIP))
	s.audit(ctx, in, pkglogger.EventLoginRecovery, true, "", 0)
	s.auditLogger.LogPasswordReset(ctx, admin.Username, "recovery")
	metrics.RecordLogin(metrics.LoginRecovery)

	return &LoginResult{Username: admin.Username, Token: token, Recovered: true}, nil
}

// passwordMatches compares against the stored hash, spending a bcrypt comparison
// even when there is no usable hash so unknown usernames are not distinguishable.
func (s *AuthService) passwordMatches(admin *models.AdminCredential, password string) bool {
	if admin == nil || !pkgauth.IsWellFormedHash(admin.PasswordHash) {
		pkgauth.CompareDummy(password)
		return false
	}
	return pkgauth.ComparePassword(admin.PasswordHash, password) == nil
}

// Session resolves a session token to the admin it was issued for. It returns
// models.ErrUnauthorized when the token is invalid or the admin no longer exists.
func (s *AuthService) Session(ctx context.Context, token string) (*models.AdminCredential, error) {
	claims, result := s.sessions.Inspect(token)
	if result != auth.VerifyValid {
		s.logger.Debug("session token rejected", slog.String("reason", result.String()))
		return nil, models.ErrUnauthorized
	}

	admin, err := s.admins.GetByUsername(ctx, claims.Username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("look up session admin: %w", err)
	}

	return admin, nil
}

func (s *AuthService) audit(ctx context.Context, in LoginInput, eventType string, success bool, reason string, retryAfter int) {
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:         eventType,
		Username:          in.Username,
		IPAddress:         in.ClientIP,
		UserAgent:         in.UserAgent,
		RequestID:         in.RequestID,
		Success:           success,
		FailureReason:     reason,
		RetryAfterSeconds: retryAfter,
	})
}
