// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/models"
)

// GetAttemptSession retrieves the attempt session for an email.
func (r *Repository) GetAttemptSession(ctx context.Context, email string) (*models.AttemptSession, error) {
	var session models.AttemptSession
	if err := r.db.GetContext(ctx, &session, `SELECT * FROM otp_attempt_sessions WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &session, nil
}

// IncrementAttemptSession adds one attempt, creating the session on first use,
// and returns the new count. The window start is kept on increments.
func (r *Repository) IncrementAttemptSession(ctx context.Context, email string, now time.Time) (int, error) {
	var attempts int
	err := r.db.GetContext(ctx, &attempts,
		`INSERT INTO otp_attempt_sessions (email, attempts, created_at) VALUES (?, 1, ?)
		 ON CONFLICT(email) DO UPDATE SET attempts = attempts + 1
		 RETURNING attempts`,
		email, now.UTC())
	return attempts, err
}

// DeleteAttemptSession deletes the attempt session for an email.
func (r *Repository) DeleteAttemptSession(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_attempt_sessions WHERE email = ?`, email)
	return err
}

// DeleteAttemptSessionsCreatedBefore sweeps sessions created before cutoff.
func (r *Repository) DeleteAttemptSessionsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_attempt_sessions WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
