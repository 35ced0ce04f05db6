// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"errors"
	"log/slog"

	"codeberg.org/oliverandrich/coursehub/internal/config"
	"codeberg.org/oliverandrich/coursehub/internal/services/email"
)

var errNoMailTransport = errors.New("no mail transport configured: set smtp-host or resend-api-key")

// newMailer picks the configured transports. With both SMTP and Resend set,
// Resend is tried when SMTP fails. Development falls back to logging mails.
func newMailer(cfg *config.Config, logger *slog.Logger) (email.Sender, error) {
	var senders []email.Sender

	if cfg.SMTP.Host != "" {
		s, err := email.NewSMTPSender(&cfg.SMTP)
		if err != nil {
			return nil, err
		}
		senders = append(senders, s)
	}

	if cfg.Resend.APIKey != "" {
		s, err := email.NewResendSender(&cfg.Resend)
		if err != nil {
			return nil, err
		}
		senders = append(senders, s)
	}

	switch len(senders) {
	case 0:
		if !cfg.IsDevelopment() {
			return nil, errNoMailTransport
		}
		logger.Warn("no mail transport configured, emails are logged")
		return email.NewLogSender(logger), nil
	case 1:
		return senders[0], nil
	default:
		return email.NewFallback(senders...), nil
	}
}
