// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"os"

	"codeberg.org/oliverandrich/coursehub/internal/config"
	"codeberg.org/oliverandrich/coursehub/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	// Root flags are inherited by the subcommands.
	cmd := &cli.Command{
		Name:    "coursehub",
		Usage:   "Signup and account service",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: server.Run,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{Name: "up", Usage: "Apply pending migrations", Action: server.MigrateUp},
					{Name: "down", Usage: "Roll back the latest migration", Action: server.MigrateDown},
					{Name: "reset", Usage: "Roll back all migrations", Action: server.MigrateReset},
				},
			},
			{
				Name:   "sweep",
				Usage:  "Delete expired codes and attempt sessions",
				Action: server.Sweep,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
