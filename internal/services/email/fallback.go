// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Fallback tries each sender in order until one succeeds.
type Fallback struct {
	senders []Sender
}

// NewFallback creates a sender chain. The first sender is the primary.
func NewFallback(senders ...Sender) *Fallback {
	return &Fallback{senders: senders}
}

// Send implements Sender.
func (f *Fallback) Send(ctx context.Context, to, subject, body string) error {
	if len(f.senders) == 0 {
		return fmt.Errorf("no email senders configured")
	}

	var errs []error
	for i, sender := range f.senders {
		err := sender.Send(ctx, to, subject, body)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "email sender failed", "sender", i, "error", err)
		errs = append(errs, err)
	}

	return fmt.Errorf("all email senders failed: %w", errors.Join(errs...))
}
