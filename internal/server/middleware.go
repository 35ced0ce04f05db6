// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/coursehub/internal/appcontext"
	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"codeberg.org/oliverandrich/coursehub/internal/config"
	"codeberg.org/oliverandrich/coursehub/internal/handlers"
	"codeberg.org/oliverandrich/coursehub/internal/i18n"
	"codeberg.org/oliverandrich/coursehub/internal/services/account"
	"codeberg.org/oliverandrich/coursehub/internal/services/session"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config, sessions *session.Manager, accounts *account.Service) {
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger())
	e.Use(middleware.Secure())
	if len(cfg.Server.CORSOrigins) > 0 {
		e.Use(corsMiddleware(cfg.Server.CORSOrigins))
	}
	e.Use(middleware.BodyLimit(bodyLimit(cfg.Server.MaxBodySize)))
	e.Use(i18nMiddleware())
	e.Use(loadAccount(sessions, accounts))
}

func bodyLimit(mb int) string {
	if mb <= 0 {
		mb = 1
	}
	return fmt.Sprintf("%dM", mb)
}

// corsMiddleware allows the signup frontend to call the API with cookies.
func corsMiddleware(origins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderContentType, "Accept-Language"},
		AllowCredentials: true,
	})
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}

			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				level = slog.LevelError
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)

			return nil
		},
	})
}

// i18nMiddleware sets the locale based on Accept-Language header.
func i18nMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			acceptLang := c.Request().Header.Get("Accept-Language")
			lang := i18n.MatchLanguage(acceptLang)
			ctx := i18n.WithLocale(c.Request().Context(), lang)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// loadAccount wraps the context and attaches the account named by the
// session cookie. Cookies for deleted accounts are cleared.
func loadAccount(sessions *session.Manager, accounts *account.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &appcontext.Context{Context: c}

			if id, err := sessions.AccountID(c.Request()); err == nil {
				acct, err := accounts.Profile(c.Request().Context(), id)
				switch {
				case err == nil:
					cc.Account = acct
				case errors.Is(err, apperr.ErrAccountNotFound):
					sessions.Clear(c)
				default:
					return err
				}
			}

			return next(cc)
		}
	}
}

// requireAccount rejects requests without a signed-in account.
func requireAccount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if appcontext.AccountFrom(c) == nil {
				return c.JSON(http.StatusUnauthorized, handlers.Envelope{
					Message: i18n.T(c.Request().Context(), "unauthenticated"),
					Error:   "unauthenticated",
				})
			}
			return next(c)
		}
	}
}
