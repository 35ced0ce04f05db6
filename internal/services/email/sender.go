// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers plain-text mail through SMTP or the Resend API.
package email

import "context"

// Sender delivers a single plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
