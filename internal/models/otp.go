// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// OtpPurpose tells which flow an OTP belongs to.
type OtpPurpose string

const (
	PurposeSignup OtpPurpose = "signup"
	PurposeReset  OtpPurpose = "reset"
)

// OtpStatus is the verification state of an OTP.
type OtpStatus string

const (
	StatusSent     OtpStatus = "sent"
	StatusVerified OtpStatus = "verified"
)

// OtpRecord is the single live one-time code for an email address.
type OtpRecord struct { //nolint:govet // fieldalignment: readability over optimization
	Email     string     `db:"email" json:"email"`
	Code      string     `db:"code" json:"-"`
	Purpose   OtpPurpose `db:"purpose" json:"purpose"`
	Status    OtpStatus  `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// ExpiredAt reports whether the record is older than ttl at now.
func (r *OtpRecord) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.CreatedAt) > ttl
}

// IsVerified reports whether the code has been matched.
func (r *OtpRecord) IsVerified() bool {
	return r.Status == StatusVerified
}

// AttemptSession counts code requests for an email within a window.
type AttemptSession struct {
	Email     string    `db:"email" json:"email"`
	Attempts  int       `db:"attempts" json:"attempts"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
