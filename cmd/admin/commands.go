package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lulusspp/lulus-api/internal/models"
	"github.com/lulusspp/lulus-api/internal/services"
	pkglogger "github.com/lulusspp/lulus-api/pkg/logger"
	"github.com/spf13/cobra"
)

const commandTimeout = 30 * time.Second

type attemptStore interface {
	Delete(ctx context.Context, key string) error
}

// backend is everything a command may touch. Tests swap in fakes.
type backend struct {
	admins   services.AdminCredentialRepository
	attempts attemptStore
	migrate  func(ctx context.Context) error
	close    func()
}

type app struct {
	stdout io.Writer
	logger *slog.Logger
	open   func(ctx context.Context) (*backend, error)
}

// withBackend opens the store, runs fn under a timeout, and closes the store
func (a *app) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *backend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	b, err := a.open(ctx)
	if err != nil {
		return err
	}
	if b.close != nil {
		defer b.close()
	}
	return fn(ctx, b)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "lulus-admin",
		Short:        "Maintain the LULUS SPP admin credential",
		SilenceUsage: true,
	}
	root.SetOut(a.stdout)
	root.AddCommand(newSeedCmd(a))
	root.AddCommand(newResetPasswordCmd(a))
	root.AddCommand(newUnblockCmd(a))
	root.AddCommand(newMigrateCmd(a))
	return root
}

// credentialFlags reads --username/--password, falling back to ADMIN_USERNAME/ADMIN_PASSWORD
// so the password can stay out of shell history.
func credentialFlags(cmd *cobra.Command, username, password *string) {
	cmd.Flags().StringVar(username, "username", os.Getenv("ADMIN_USERNAME"), "admin username (env ADMIN_USERNAME)")
	cmd.Flags().StringVar(password, "password", "", "new password (env ADMIN_PASSWORD)")
}

func resolvePassword(password string) string {
	if password != "" {
		return password
	}
	return os.Getenv("ADMIN_PASSWORD")
}

func newSeedCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin credential if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username = strings.TrimSpace(username)
			password = resolvePassword(password)
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			return a.withBackend(cmd, func(ctx context.Context, b *backend) error {
				svc := services.NewAdminService(b.admins, a.logger, pkglogger.NewAuditLogger(a.logger, "production"))
				created, err := svc.Seed(ctx, username, password)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(a.stdout, "admin %q created\n", username)
				} else {
					fmt.Fprintf(a.stdout, "admin %q already exists, nothing changed\n", username)
				}
				return nil
			})
		},
	}
	credentialFlags(cmd, &username, &password)
	return cmd
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Replace the password of an existing admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username = strings.TrimSpace(username)
			password = resolvePassword(password)
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			return a.withBackend(cmd, func(ctx context.Context, b *backend) error {
				svc := services.NewAdminService(b.admins, a.logger, pkglogger.NewAuditLogger(a.logger, "production"))
				if err := svc.ResetPassword(ctx, username, password); err != nil {
					if errors.Is(err, models.ErrNotFound) {
						return fmt.Errorf("admin %q does not exist; run seed first", username)
					}
					return err
				}
				fmt.Fprintf(a.stdout, "password for %q updated\n", username)
				return nil
			})
		},
	}
	credentialFlags(cmd, &username, &password)
	return cmd
}

func newUnblockCmd(a *app) *cobra.Command {
	var ip, username string
	cmd := &cobra.Command{
		Use:   "unblock",
		Short: "Clear failed login attempts for a client IP and username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ip = strings.TrimSpace(ip)
			username = strings.TrimSpace(username)
			if ip == "" || username == "" {
				return errors.New("--ip and --username are required")
			}

			key := models.LoginAttemptKey(ip, username)
			return a.withBackend(cmd, func(ctx context.Context, b *backend) error {
				if err := b.attempts.Delete(ctx, key); err != nil {
					return fmt.Errorf("clear login attempts: %w", err)
				}
				fmt.Fprintf(a.stdout, "cleared login attempts for %s\n", key)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ip, "ip", "", "client IP address")
	cmd.Flags().StringVar(&username, "username", "", "username that was attempted")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *backend) error {
				if err := b.migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "migrations applied")
				return nil
			})
		},
	}
}
