// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package apperr defines the failures callers can tell apart.
// Services wrap these so handlers can map them to responses without
// leaking store or transport details. Anything else is internal.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmailTaken      = errors.New("email already registered")
	ErrRateLimited     = errors.New("too many code requests")
	ErrDeliveryFailed  = errors.New("code delivery failed")
	ErrNotFound        = errors.New("no pending code")
	ErrExpired         = errors.New("code expired")
	ErrAlreadyUsed     = errors.New("code already used")
	ErrMismatch        = errors.New("code does not match")
	ErrUsernameInvalid = errors.New("username invalid")
	// ErrUsernameTaken also matches ErrUsernameInvalid.
	ErrUsernameTaken = fmt.Errorf("%w: already taken", ErrUsernameInvalid)
	ErrNotVerified   = errors.New("email not verified")
	ErrAlreadyExists = errors.New("account already exists")

	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("not signed in")
)

// Invalid wraps ErrInvalidInput with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
