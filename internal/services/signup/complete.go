// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package signup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"codeberg.org/oliverandrich/coursehub/internal/models"
	"codeberg.org/oliverandrich/coursehub/internal/repository"
	"codeberg.org/oliverandrich/coursehub/internal/validate"
	"github.com/oklog/ulid/v2"
)

// CompleteSignupInput is the final step of the wizard.
type CompleteSignupInput struct {
	Email           string `validate:"required"`
	Name            string `validate:"required,max=100"`
	Username        string `validate:"required"`
	Password        string `validate:"required,min=8,max=72"`
	ConfirmPassword string `validate:"required"`
}

// CompleteSignup creates the account for a verified address.
func (s *Service) CompleteSignup(ctx context.Context, in CompleteSignupInput) (*models.PublicAccount, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := checkPassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}
	address, err := validate.Email(in.Email)
	if err != nil {
		return nil, err
	}
	if !validate.Username(in.Username) {
		return nil, apperr.ErrUsernameInvalid
	}

	exists, err := s.store.EmailExists(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return nil, apperr.ErrAlreadyExists
	}

	taken, err := s.store.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if taken {
		return nil, apperr.ErrUsernameTaken
	}

	if _, err := s.verifiedRecord(ctx, address, models.PurposeSignup); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	account := &models.Account{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Email:        address,
		Username:     in.Username,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, apperr.ErrAlreadyExists
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, apperr.ErrUsernameTaken
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	if err := s.store.DeleteOtpRecord(ctx, address); err != nil {
		return nil, fmt.Errorf("consuming code: %w", err)
	}

	return account.Public(), nil
}
