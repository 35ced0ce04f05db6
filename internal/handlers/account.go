// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/coursehub/internal/appcontext"
	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"codeberg.org/oliverandrich/coursehub/internal/services/account"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

// Login checks credentials and starts a session.
func (h *Handlers) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	acct, err := h.accounts.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.sessions.Issue(c, acct.ID); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, AccountResponse{
		Envelope: success(c, "logged_in"),
		Account:  acct.Public(),
	})
}

// Logout ends the session.
func (h *Handlers) Logout(c echo.Context) error {
	h.sessions.Clear(c)
	return c.JSON(http.StatusOK, success(c, "logged_out"))
}

// Me returns the signed-in account.
func (h *Handlers) Me(c echo.Context) error {
	acct := appcontext.AccountFrom(c)
	if acct == nil {
		return h.fail(c, apperr.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, AccountResponse{
		Envelope: success(c, "account_loaded"),
		Account:  acct.Public(),
	})
}

// UpdateProfile changes the signed-in account's profile. The account is
// always the session's, never one named in the body.
func (h *Handlers) UpdateProfile(c echo.Context) error {
	current := appcontext.AccountFrom(c)
	if current == nil {
		return h.fail(c, apperr.ErrUnauthenticated)
	}

	var req profileRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	acct, err := h.accounts.UpdateProfile(c.Request().Context(), current.ID, account.ProfileInput{
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, AccountResponse{
		Envelope: success(c, "profile_updated"),
		Account:  acct.Public(),
	})
}
