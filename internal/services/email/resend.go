// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/coursehub/internal/config"
	"github.com/resend/resend-go/v2"
)

// ResendSender sends mail through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a new Resend sender.
func NewResendSender(cfg *config.ResendConfig) (*ResendSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("resend from address is required")
	}

	return &ResendSender{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.From,
	}, nil
}

// Send implements Sender.
func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	res, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("sending email via resend: %w", err)
	}

	slog.DebugContext(ctx, "email sent via resend", "id", res.Id)
	return nil
}
