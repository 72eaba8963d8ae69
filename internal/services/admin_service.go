package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lulusspp/lulus-api/internal/models"
	pkgauth "github.com/lulusspp/lulus-api/pkg/auth"
	pkglogger "github.com/lulusspp/lulus-api/pkg/logger"
)

// AdminCredentialRepository is the subset of AdminRepository methods needed by AdminService.
type AdminCredentialRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*models.AdminCredential, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

// AdminService provisions and resets the admin credential outside the login flow.
type AdminService struct {
	repo        AdminCredentialRepository
	hashCost    int
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAdminService creates a new AdminService.
func NewAdminService(repo AdminCredentialRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AdminService {
	return &AdminService{
		repo:        repo,
		hashCost:    pkgauth.BcryptCost,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SetHashCost overrides the bcrypt cost
func (s *AdminService) SetHashCost(cost int) {
	s.hashCost = cost
}

// Seed creates the admin if it does not exist yet. An existing credential is left untouched.
func (s *AdminService) Seed(ctx context.Context, username, password string) (bool, error) {
	if username == "" {
		return false, fmt.Errorf("%w: username is required", models.ErrBadRequest)
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	hash, err := pkgauth.HashPasswordWithCost(password, s.hashCost)
	if err != nil {
		return false, fmt.Errorf("hash seed password: %w", err)
	}

	if _, err := s.repo.Create(ctx, username, hash); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Debug("admin already provisioned, skipping seed")
			return false, nil
		}
		return false, fmt.Errorf("seed admin: %w", err)
	}

	s.auditLogger.LogPasswordReset(ctx, username, "seed")
	return true, nil
}

// ResetPassword replaces the password of an existing admin
func (s *AdminService) ResetPassword(ctx context.Context, username, password string) error {
	if err := pkgauth.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	hash, err := pkgauth.HashPasswordWithCost(password, s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, username, hash); err != nil {
		return fmt.Errorf("reset admin password: %w", err)
	}

	s.auditLogger.LogPasswordReset(ctx, username, "cli")
	return nil
}
