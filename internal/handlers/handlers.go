// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON HTTP endpoints.
package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/coursehub/internal/services/account"
	"codeberg.org/oliverandrich/coursehub/internal/services/signup"
	"github.com/labstack/echo/v4"
)

// Sessions issues and clears the sign-in cookie. *session.Manager implements it.
type Sessions interface {
	Issue(c echo.Context, accountID string) error
	Clear(c echo.Context)
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	signup   *signup.Service
	accounts *account.Service
	sessions Sessions
}

// New creates a new Handlers instance.
func New(signupSvc *signup.Service, accounts *account.Service, sessions Sessions) *Handlers {
	return &Handlers{
		signup:   signupSvc,
		accounts: accounts,
		sessions: sessions,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
