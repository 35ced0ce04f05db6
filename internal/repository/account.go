// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/models"
)

// CreateAccount inserts a new account. Unique violations surface as
// ErrDuplicateEmail or ErrDuplicateUsername.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO accounts (id, email, username, name, password_hash, bio, avatar_url, created_at, updated_at)
		 VALUES (:id, :email, :username, :name, :password_hash, :bio, :avatar_url, :created_at, :updated_at)`,
		account)
	return wrapError(err)
}

// GetAccountByID retrieves an account by ID.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves an account by email.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// EmailExists checks if an account with the given email exists.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ?)`, email)
	return exists, err
}

// UsernameExists checks if an account with the given username exists.
func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = ?)`, username)
	return exists, err
}

// UpdateAccountProfile updates the mutable profile fields.
func (r *Repository) UpdateAccountProfile(ctx context.Context, id, name, bio, avatarURL string, now time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, bio = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		name, bio, avatarURL, now.UTC(), id))
}

// UpdateAccountPassword replaces the password hash.
func (r *Repository) UpdateAccountPassword(ctx context.Context, id, passwordHash string, now time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, now.UTC(), id))
}
