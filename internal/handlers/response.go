// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"codeberg.org/oliverandrich/coursehub/internal/i18n"
	"github.com/labstack/echo/v4"
)

// Envelope is the part every JSON response shares.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Error codes for failures that are not tied to an apperr sentinel.
const (
	CodeInternal        = "internal"
	CodeTooManyRequests = "too_many_requests"
)

type errorMapping struct {
	target    error
	status    int
	code      string
	messageID string
}

// Order matters: ErrUsernameTaken also matches ErrUsernameInvalid.
var errorMappings = []errorMapping{
	{apperr.ErrInvalidInput, http.StatusBadRequest, "invalid_input", "invalid_input"},
	{apperr.ErrEmailTaken, http.StatusBadRequest, "email_taken", "email_taken"},
	{apperr.ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "rate_limited"},
	{apperr.ErrDeliveryFailed, http.StatusInternalServerError, "delivery_failed", "delivery_failed"},
	{apperr.ErrNotFound, http.StatusBadRequest, "code_not_found", "code_not_found"},
	{apperr.ErrExpired, http.StatusBadRequest, "code_expired", "code_expired"},
	{apperr.ErrAlreadyUsed, http.StatusBadRequest, "code_already_used", "code_already_used"},
	{apperr.ErrMismatch, http.StatusBadRequest, "code_mismatch", "code_mismatch"},
	{apperr.ErrUsernameTaken, http.StatusBadRequest, "username_taken", "username_taken"},
	{apperr.ErrUsernameInvalid, http.StatusBadRequest, "username_invalid", "username_invalid"},
	{apperr.ErrNotVerified, http.StatusBadRequest, "not_verified", "not_verified"},
	{apperr.ErrAlreadyExists, http.StatusBadRequest, "account_exists", "account_exists"},
	{apperr.ErrAccountNotFound, http.StatusBadRequest, "account_not_found", "account_not_found"},
	{apperr.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid_credentials"},
	{apperr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "unauthenticated"},
}

func success(c echo.Context, messageID string) Envelope {
	return Envelope{Success: true, Message: i18n.T(c.Request().Context(), messageID)}
}

// fail maps err to a status and localized message. Unknown errors are
// logged and reported as internal.
func (h *Handlers) fail(c echo.Context, err error) error {
	ctx := c.Request().Context()
	data := map[string]any{"Minutes": h.windowMinutes()}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.status >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "request failed", "error", err, "code", m.code)
		}
		return c.JSON(m.status, Envelope{
			Message: i18n.TData(ctx, m.messageID, data),
			Error:   m.code,
		})
	}

	slog.ErrorContext(ctx, "unexpected error", "error", err)
	return c.JSON(http.StatusInternalServerError, Envelope{
		Message: i18n.T(ctx, "internal_error"),
		Error:   CodeInternal,
	})
}

func (h *Handlers) windowMinutes() int {
	if h.signup == nil {
		return 0
	}
	return int(h.signup.AttemptWindow().Minutes())
}

// ErrorHandler renders errors that escape handlers, such as unknown routes
// or oversized bodies, as JSON envelopes.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		slog.ErrorContext(c.Request().Context(), "unhandled error", "error", err)
		he = echo.NewHTTPError(http.StatusInternalServerError)
	}

	env := Envelope{Message: http.StatusText(he.Code), Error: CodeInternal}
	switch {
	case he.Code == http.StatusTooManyRequests:
		env.Message = i18n.T(c.Request().Context(), "too_many_requests")
		env.Error = CodeTooManyRequests
	case he.Code >= http.StatusInternalServerError:
		env.Message = i18n.T(c.Request().Context(), "internal_error")
	default:
		env.Error = strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(he.Code)
	} else {
		writeErr = c.JSON(he.Code, env)
	}
	if writeErr != nil {
		slog.ErrorContext(c.Request().Context(), "writing error response", "error", writeErr)
	}
}
