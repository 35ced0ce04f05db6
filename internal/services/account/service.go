// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package account handles sign-in and profile changes for existing accounts.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"codeberg.org/oliverandrich/coursehub/internal/models"
	"codeberg.org/oliverandrich/coursehub/internal/repository"
	"codeberg.org/oliverandrich/coursehub/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence the account service needs.
type Store interface {
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateAccountProfile(ctx context.Context, id, name, bio, avatarURL string, now time.Time) error
}

// dummyHash keeps unknown-email logins as slow as wrong-password ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("coursehub-dummy"), bcrypt.DefaultCost)

// Service provides account operations.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an account service. A nil now uses time.Now.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// ProfileInput holds the mutable profile fields.
type ProfileInput struct {
	Name      string `validate:"required,max=100"`
	Bio       string `validate:"max=500"`
	AvatarURL string `validate:"omitempty,url"`
}

// Authenticate checks a password and returns the account it belongs to.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.ErrInvalidCredentials
	}

	account, err := s.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return account, nil
}

// Profile loads an account by id.
func (s *Service) Profile(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.store.GetAccountByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}
	return account, nil
}

// UpdateProfile changes the profile of the account with the given id.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Bio = strings.TrimSpace(in.Bio)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	err := s.store.UpdateAccountProfile(ctx, id, in.Name, in.Bio, in.AvatarURL, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	return s.Profile(ctx, id)
}
