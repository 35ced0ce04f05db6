// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/config"
	"codeberg.org/oliverandrich/coursehub/internal/database"
	"codeberg.org/oliverandrich/coursehub/internal/handlers"
	"codeberg.org/oliverandrich/coursehub/internal/i18n"
	"codeberg.org/oliverandrich/coursehub/internal/repository"
	"codeberg.org/oliverandrich/coursehub/internal/services/account"
	"codeberg.org/oliverandrich/coursehub/internal/services/email"
	"codeberg.org/oliverandrich/coursehub/internal/services/session"
	"codeberg.org/oliverandrich/coursehub/internal/services/signup"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"env", cfg.App.Env,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up mail: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := newEcho(ctx, cfg, repository.New(db), mailer)
	if err != nil {
		return err
	}

	return startWithGracefulShutdown(ctx, e, cfg)
}

// newEcho wires services, middleware and routes. ctx bounds background work.
func newEcho(ctx context.Context, cfg *config.Config, repo *repository.Repository, mailer email.Sender) (*echo.Echo, error) {
	if cfg.Signup.EchoCode {
		slog.Warn("signup codes are returned in API responses")
	}

	signupSvc := signup.NewService(repo, mailer, signup.Options{
		CodeTTL:       cfg.Signup.CodeTTL,
		AttemptWindow: cfg.Signup.AttemptWindow,
		MaxAttempts:   cfg.Signup.MaxAttempts,
		EchoCode:      cfg.Signup.EchoCode,
		HashCost:      cfg.Signup.HashCost,
	})
	accounts := account.NewService(repo, nil)

	sessions, err := session.NewManager(&cfg.Session, cfg.SecureCookies())
	if err != nil {
		return nil, fmt.Errorf("failed to set up sessions: %w", err)
	}

	var limiter *rateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = newRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		go limiter.run(ctx)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg, sessions, accounts)
	setupRoutes(e, handlers.New(signupSvc, accounts, sessions), limiter)

	return e, nil
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
