// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"codeberg.org/oliverandrich/coursehub/internal/models"
	"codeberg.org/oliverandrich/coursehub/internal/services/signup"
	"github.com/labstack/echo/v4"
)

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type completeRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type resetRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// CodeResponse is returned after a code was sent.
type CodeResponse struct {
	Envelope
	Stage     signup.Stage `json:"stage"`
	ExpiresAt time.Time    `json:"expires_at"`
	Code      string       `json:"code,omitempty"`
}

// StageResponse carries the next wizard stage.
type StageResponse struct {
	Envelope
	Stage signup.Stage `json:"stage"`
}

// AccountResponse carries the public view of an account.
type AccountResponse struct {
	Envelope
	Account *models.PublicAccount `json:"account"`
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Invalid("malformed request body")
	}
	return nil
}

// RequestCode sends a signup code.
func (h *Handlers) RequestCode(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	res, err := h.signup.RequestCode(c.Request().Context(), req.Email)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, codeResponse(c, "code_sent", res))
}

// VerifyCode checks a signup code.
func (h *Handlers) VerifyCode(c echo.Context) error {
	return h.verify(c, "code_verified")
}

// CompleteSignup creates the account and signs it in.
func (h *Handlers) CompleteSignup(c echo.Context) error {
	var req completeRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	account, err := h.signup.CompleteSignup(c.Request().Context(), signup.CompleteSignupInput{
		Email:           req.Email,
		Name:            req.Name,
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return h.fail(c, err)
	}

	// The account exists now; a missing cookie only means signing in by hand.
	if err := h.sessions.Issue(c, account.ID); err != nil {
		slog.WarnContext(c.Request().Context(), "issuing session after signup", "account_id", account.ID, "error", err)
	}

	return c.JSON(http.StatusCreated, AccountResponse{
		Envelope: success(c, "signup_complete"),
		Account:  account,
	})
}

// Stage reports which signup step the server expects next.
func (h *Handlers) Stage(c echo.Context) error {
	stage, err := h.signup.Stage(c.Request().Context(), c.QueryParam("email"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, StageResponse{
		Envelope: success(c, "stage_current"),
		Stage:    stage,
	})
}

// RequestResetCode sends a password reset code.
func (h *Handlers) RequestResetCode(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	res, err := h.signup.RequestResetCode(c.Request().Context(), req.Email)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, codeResponse(c, "reset_code_sent", res))
}

// VerifyResetCode checks a password reset code.
func (h *Handlers) VerifyResetCode(c echo.Context) error {
	return h.verify(c, "reset_code_verified")
}

// ResetPassword sets a new password after a verified reset code.
func (h *Handlers) ResetPassword(c echo.Context) error {
	var req resetRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	err := h.signup.ResetPassword(c.Request().Context(), signup.ResetPasswordInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, success(c, "password_reset"))
}

func (h *Handlers) verify(c echo.Context, messageID string) error {
	var req verifyRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	res, err := h.signup.VerifyCode(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, StageResponse{
		Envelope: success(c, messageID),
		Stage:    res.Stage,
	})
}

func codeResponse(c echo.Context, messageID string, res *signup.RequestResult) CodeResponse {
	return CodeResponse{
		Envelope:  success(c, messageID),
		Stage:     res.Stage,
		ExpiresAt: res.ExpiresAt,
		Code:      res.Code,
	}
}
