// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/models"
)

// CreateOtpRecord stores the record for its email. A concurrent record for
// the same email is replaced, so the last writer wins.
func (r *Repository) CreateOtpRecord(ctx context.Context, rec *models.OtpRecord) error {
	rec.CreatedAt = rec.CreatedAt.UTC()
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO otp_records (email, code, purpose, status, created_at)
		 VALUES (:email, :code, :purpose, :status, :created_at)
		 ON CONFLICT(email) DO UPDATE SET
		   code = excluded.code,
		   purpose = excluded.purpose,
		   status = excluded.status,
		   created_at = excluded.created_at`,
		rec)
	return wrapError(err)
}

// GetOtpRecord retrieves the record for an email.
func (r *Repository) GetOtpRecord(ctx context.Context, email string) (*models.OtpRecord, error) {
	var rec models.OtpRecord
	if err := r.db.GetContext(ctx, &rec, `SELECT * FROM otp_records WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &rec, nil
}

// MarkOtpRecordVerified flips the record to verified.
func (r *Repository) MarkOtpRecordVerified(ctx context.Context, email string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE otp_records SET status = ? WHERE email = ?`, models.StatusVerified, email))
}

// DeleteOtpRecord deletes the record for an email. Missing records are not an error.
func (r *Repository) DeleteOtpRecord(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_records WHERE email = ?`, email)
	return err
}

// DeleteOtpRecordsCreatedBefore sweeps records created before cutoff.
func (r *Repository) DeleteOtpRecordsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_records WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
