// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package validate wraps go-playground/validator and reports failures as
// apperr.ErrInvalidInput.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"github.com/go-playground/validator/v10"
)

// UsernameRule is the format every username must satisfy.
const UsernameRule = "min=3,max=10,alphanum,lowercase"

// v is shared; validator caches struct metadata internally.
var v = validator.New(validator.WithRequiredStructEnabled())

// Struct validates s using its validate tags.
func Struct(s any) error {
	return wrap(v.Struct(s))
}

// Var validates a single value against a tag.
func Var(field string, value any, tag string) error {
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return apperr.Invalid("field '%s' failed '%s'", field, ve[0].Tag())
	}
	return err
}

// Username reports whether the username satisfies UsernameRule.
func Username(username string) bool {
	return v.Var(username, UsernameRule) == nil
}

// Email normalizes an address and checks its syntax.
func Email(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := Var("email", email, "required,email"); err != nil {
		return "", err
	}
	return email, nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return apperr.Invalid("%s", strings.Join(msgs, "; "))
}
