package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types for the admin login flow
const (
	EventLoginSuccess  = "login_success"
	EventLoginFailure  = "login_failure"
	EventLoginLockout  = "login_lockout"
	EventLoginBlocked  = "login_blocked"
	EventLoginRecovery = "login_recovery"
	EventLogout        = "logout"
	EventPasswordReset = "password_reset"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType         string
	Username          string
	IPAddress         string
	UserAgent         string
	RequestID         string
	Success           bool
	FailureReason     string
	RetryAfterSeconds int
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	env    string
}

// NewAuditLogger creates a new audit logger. Usernames are masked unless env is "development".
func NewAuditLogger(logger *slog.Logger, env string) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		env:    env,
	}
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Username != "" {
		attrs = append(attrs, slog.String("username", al.username(event.Username)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	if event.RetryAfterSeconds > 0 {
		attrs = append(attrs, slog.Int("retry_after_seconds", event.RetryAfterSeconds))
	}

	if event.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
	}
}

// LogPasswordReset logs out-of-band credential changes (seed, recovery, CLI reset)
func (al *AuditLogger) LogPasswordReset(ctx context.Context, username, source string) {
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("audit_type", "password"),
		slog.String("event_type", EventPasswordReset),
		slog.String("username", al.username(username)),
		slog.String("source", source),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

func (al *AuditLogger) username(name string) string {
	if al.env == "development" {
		return name
	}
	return MaskUsername(name)
}
