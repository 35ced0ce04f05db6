// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package signup gates account creation behind a one-time code sent to the
// applicant's email address.
package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"codeberg.org/oliverandrich/coursehub/internal/i18n"
	"codeberg.org/oliverandrich/coursehub/internal/models"
	"codeberg.org/oliverandrich/coursehub/internal/repository"
	"codeberg.org/oliverandrich/coursehub/internal/services/email"
	"codeberg.org/oliverandrich/coursehub/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence the workflow needs. *repository.Repository implements it.
type Store interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateAccountPassword(ctx context.Context, id, passwordHash string, now time.Time) error

	CreateOtpRecord(ctx context.Context, rec *models.OtpRecord) error
	GetOtpRecord(ctx context.Context, email string) (*models.OtpRecord, error)
	MarkOtpRecordVerified(ctx context.Context, email string) error
	DeleteOtpRecord(ctx context.Context, email string) error
	DeleteOtpRecordsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	GetAttemptSession(ctx context.Context, email string) (*models.AttemptSession, error)
	IncrementAttemptSession(ctx context.Context, email string, now time.Time) (int, error)
	DeleteAttemptSession(ctx context.Context, email string) error
	DeleteAttemptSessionsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Options tunes the workflow. Zero values fall back to the defaults.
type Options struct {
	CodeTTL       time.Duration
	AttemptWindow time.Duration
	MaxAttempts   int
	// EchoCode returns the generated code to the caller. Development only.
	EchoCode bool
	HashCost int
	Now      func() time.Time
}

// Defaults applied by NewService.
const (
	DefaultCodeTTL       = 5 * time.Minute
	DefaultAttemptWindow = 15 * time.Minute
	DefaultMaxAttempts   = 3
)

// Service runs the signup and password reset workflows.
type Service struct {
	store  Store
	mailer email.Sender
	opts   Options
}

// NewService creates a workflow over the given store and mailer.
func NewService(store Store, mailer email.Sender, opts Options) *Service {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = DefaultCodeTTL
	}
	if opts.AttemptWindow <= 0 {
		opts.AttemptWindow = DefaultAttemptWindow
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, mailer: mailer, opts: opts}
}

// AttemptWindow is the rate limit window, for messages shown to callers.
func (s *Service) AttemptWindow() time.Duration {
	return s.opts.AttemptWindow
}

// RequestResult describes a code that was just sent.
type RequestResult struct {
	Stage     Stage
	ExpiresAt time.Time
	Attempts  int
	// Code is only set when code echoing is enabled.
	Code string
}

// VerifyResult describes a successfully verified code.
type VerifyResult struct {
	Stage   Stage
	Purpose models.OtpPurpose
}

// RequestCode sends a signup code to an address that has no account yet.
func (s *Service) RequestCode(ctx context.Context, address string) (*RequestResult, error) {
	address, err := validate.Email(address)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.EmailExists(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return nil, apperr.ErrEmailTaken
	}

	return s.issue(ctx, address, models.PurposeSignup)
}

// issue replaces any pending code for the address and mails a new one.
func (s *Service) issue(ctx context.Context, address string, purpose models.OtpPurpose) (*RequestResult, error) {
	now := s.opts.Now().UTC()

	if err := s.store.DeleteOtpRecord(ctx, address); err != nil {
		return nil, fmt.Errorf("deleting previous code: %w", err)
	}
	if _, _, err := s.sweep(ctx, now); err != nil {
		return nil, err
	}

	session, err := s.store.GetAttemptSession(ctx, address)
	switch {
	case err == nil:
		if session.Attempts >= s.opts.MaxAttempts {
			return nil, apperr.ErrRateLimited
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("loading attempt session: %w", err)
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	rec := &models.OtpRecord{
		Email:     address,
		Code:      code,
		Purpose:   purpose,
		Status:    models.StatusSent,
		CreatedAt: now,
	}
	if err := s.store.CreateOtpRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("storing code: %w", err)
	}

	attempts, err := s.store.IncrementAttemptSession(ctx, address, now)
	if err != nil {
		return nil, fmt.Errorf("recording attempt: %w", err)
	}

	subject, body := s.composeEmail(ctx, purpose, code)
	if err := s.mailer.Send(ctx, address, subject, body); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrDeliveryFailed, err)
	}

	slog.InfoContext(ctx, "code sent", "purpose", purpose, "attempts", attempts)

	result := &RequestResult{
		Stage:     StageVerify,
		ExpiresAt: now.Add(s.opts.CodeTTL),
		Attempts:  attempts,
	}
	if s.opts.EchoCode {
		result.Code = code
	}
	return result, nil
}

func (s *Service) composeEmail(ctx context.Context, purpose models.OtpPurpose, code string) (string, string) {
	prefix := "signup"
	if purpose == models.PurposeReset {
		prefix = "reset"
	}
	data := map[string]any{
		"Code":    code,
		"Minutes": int(s.opts.CodeTTL.Minutes()),
	}
	return i18n.T(ctx, prefix+"_email_subject"), i18n.TData(ctx, prefix+"_email_body", data)
}

// VerifyCode checks a code against the pending record for the address.
func (s *Service) VerifyCode(ctx context.Context, address, code string) (*VerifyResult, error) {
	address, err := validate.Email(address)
	if err != nil {
		return nil, err
	}
	if err := validate.Var("code", code, "required"); err != nil {
		return nil, err
	}

	rec, err := s.store.GetOtpRecord(ctx, address)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading code: %w", err)
	}

	if rec.ExpiredAt(s.opts.Now(), s.opts.CodeTTL) {
		if err := s.store.DeleteOtpRecord(ctx, address); err != nil {
			return nil, fmt.Errorf("deleting expired code: %w", err)
		}
		return nil, apperr.ErrExpired
	}
	if rec.IsVerified() {
		return nil, apperr.ErrAlreadyUsed
	}
	if !codesEqual(rec.Code, code) {
		return nil, apperr.ErrMismatch
	}

	if err := s.store.MarkOtpRecordVerified(ctx, address); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("marking code verified: %w", err)
	}
	if err := s.store.DeleteAttemptSession(ctx, address); err != nil {
		return nil, fmt.Errorf("clearing attempt session: %w", err)
	}

	return &VerifyResult{Stage: StageComplete, Purpose: rec.Purpose}, nil
}

// Stage reports which wizard step the server expects next for the address.
func (s *Service) Stage(ctx context.Context, address string) (Stage, error) {
	address, err := validate.Email(address)
	if err != nil {
		return StageEmail, err
	}

	rec, err := s.store.GetOtpRecord(ctx, address)
	if errors.Is(err, repository.ErrNotFound) {
		return StageEmail, nil
	}
	if err != nil {
		return StageEmail, fmt.Errorf("loading code: %w", err)
	}

	switch {
	case rec.Purpose != models.PurposeSignup:
		return StageEmail, nil
	case rec.IsVerified():
		return StageComplete, nil
	case rec.ExpiredAt(s.opts.Now(), s.opts.CodeTTL):
		return StageEmail, nil
	default:
		return StageVerify, nil
	}
}

// Sweep deletes codes older than the code TTL and attempt sessions older
// than the attempt window.
func (s *Service) Sweep(ctx context.Context) (otps, sessions int64, err error) {
	return s.sweep(ctx, s.opts.Now().UTC())
}

func (s *Service) sweep(ctx context.Context, now time.Time) (int64, int64, error) {
	otps, err := s.store.DeleteOtpRecordsCreatedBefore(ctx, now.Add(-s.opts.CodeTTL))
	if err != nil {
		return 0, 0, fmt.Errorf("sweeping codes: %w", err)
	}
	sessions, err := s.store.DeleteAttemptSessionsCreatedBefore(ctx, now.Add(-s.opts.AttemptWindow))
	if err != nil {
		return otps, 0, fmt.Errorf("sweeping attempt sessions: %w", err)
	}
	return otps, sessions, nil
}

// verifiedRecord returns nil, ErrNotVerified unless the address holds a
// verified code for purpose.
func (s *Service) verifiedRecord(ctx context.Context, address string, purpose models.OtpPurpose) (*models.OtpRecord, error) {
	rec, err := s.store.GetOtpRecord(ctx, address)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrNotVerified
	}
	if err != nil {
		return nil, fmt.Errorf("loading code: %w", err)
	}
	if !rec.IsVerified() || rec.Purpose != purpose {
		return nil, apperr.ErrNotVerified
	}
	return rec, nil
}

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

// checkPassword rejects mismatched confirmations and passwords bcrypt
// cannot hash. The struct tags count runes, so the byte limit is checked here.
func checkPassword(password, confirm string) error {
	if password != confirm {
		return apperr.Invalid("passwords do not match")
	}
	if len(password) > maxPasswordBytes {
		return apperr.Invalid("password longer than %d bytes", maxPasswordBytes)
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.HashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Invalid("password longer than %d bytes", maxPasswordBytes)
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
