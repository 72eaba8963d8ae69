package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lulusspp/lulus-api/internal/config"
	"github.com/lulusspp/lulus-api/internal/database"
	"github.com/lulusspp/lulus-api/internal/repositories"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	a := &app{
		stdout: os.Stdout,
		logger: logger,
		open:   openPostgres(logger),
	}

	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

// openPostgres connects with the server's DB_* settings
func openPostgres(logger *slog.Logger) func(ctx context.Context) (*backend, error) {
	return func(ctx context.Context) (*backend, error) {
		cfg, err := config.LoadDatabase()
		if err != nil {
			return nil, err
		}

		db, err := database.NewConnection(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}

		return &backend{
			admins:   repositories.NewAdminRepository(db),
			attempts: repositories.NewLoginAttemptRepository(db),
			migrate:  db.Migrate,
			close:    db.Close,
		}, nil
	}
}
