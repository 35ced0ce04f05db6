// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package signup

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"codeberg.org/oliverandrich/coursehub/internal/models"
	"codeberg.org/oliverandrich/coursehub/internal/repository"
	"codeberg.org/oliverandrich/coursehub/internal/validate"
)

// ResetPasswordInput sets a new password after a reset code was verified.
type ResetPasswordInput struct {
	Email           string `validate:"required"`
	Password        string `validate:"required,min=8,max=72"`
	ConfirmPassword string `validate:"required"`
}

// RequestResetCode sends a password reset code to an existing account.
// It shares the attempt limit with signup codes.
func (s *Service) RequestResetCode(ctx context.Context, address string) (*RequestResult, error) {
	address, err := validate.Email(address)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.EmailExists(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if !exists {
		return nil, apperr.ErrAccountNotFound
	}

	return s.issue(ctx, address, models.PurposeReset)
}

// ResetPassword replaces the password of the account behind a verified reset code.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if err := checkPassword(in.Password, in.ConfirmPassword); err != nil {
		return err
	}
	address, err := validate.Email(in.Email)
	if err != nil {
		return err
	}

	if _, err := s.verifiedRecord(ctx, address, models.PurposeReset); err != nil {
		return err
	}

	account, err := s.store.GetAccountByEmail(ctx, address)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("loading account: %w", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return err
	}
	if err := s.store.UpdateAccountPassword(ctx, account.ID, hash, s.opts.Now().UTC()); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	if err := s.store.DeleteOtpRecord(ctx, address); err != nil {
		return fmt.Errorf("consuming code: %w", err)
	}
	return nil
}
