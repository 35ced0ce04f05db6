// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/coursehub/internal/config"
	"codeberg.org/oliverandrich/coursehub/internal/database"
	"codeberg.org/oliverandrich/coursehub/internal/repository"
	"codeberg.org/oliverandrich/coursehub/internal/services/signup"
	"github.com/urfave/cli/v3"
)

// Sweep deletes expired codes and attempt sessions once and exits.
func Sweep(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	svc := signup.NewService(repository.New(db), nil, signup.Options{
		CodeTTL:       cfg.Signup.CodeTTL,
		AttemptWindow: cfg.Signup.AttemptWindow,
	})
	otps, sessions, err := svc.Sweep(ctx)
	if err != nil {
		return err
	}

	slog.Info("sweep finished", "codes", otps, "attempt_sessions", sessions)
	return nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(_ context.Context, cmd *cli.Command) error {
	return migrate(cmd, "up", database.RunMigrations)
}

// MigrateDown rolls back the latest migration.
func MigrateDown(_ context.Context, cmd *cli.Command) error {
	return migrate(cmd, "down", database.MigrateDown)
}

// MigrateReset rolls back all migrations.
func MigrateReset(_ context.Context, cmd *cli.Command) error {
	return migrate(cmd, "reset", database.MigrateReset)
}

func migrate(cmd *cli.Command, name string, fn func(*sql.DB) error) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := fn(db.DB); err != nil {
		return fmt.Errorf("migrate %s: %w", name, err)
	}

	version, err := database.SchemaVersion(db.DB)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "command", name, "version", version)
	return nil
}
