// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context.
package appcontext

import (
	"codeberg.org/oliverandrich/coursehub/internal/models"
	"github.com/labstack/echo/v4"
)

// Context is a custom Echo context carrying the signed-in account.
type Context struct {
	echo.Context
	Account *models.Account // nil if not authenticated
}

// GetAccount returns the authenticated account, or nil if not authenticated.
func (c *Context) GetAccount() *models.Account {
	return c.Account
}

// IsAuthenticated returns true if an account is signed in.
func (c *Context) IsAuthenticated() bool {
	return c.Account != nil
}

// AccountFrom returns the account attached to c, looking through the
// custom context if present.
func AccountFrom(c echo.Context) *models.Account {
	if cc, ok := c.(*Context); ok {
		return cc.Account
	}
	return nil
}
