// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/config"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

// ErrNoSession is returned when the request carries no valid session cookie.
var ErrNoSession = errors.New("no session")

// payload is what gets signed into the cookie.
type payload struct {
	AccountID string
	IssuedAt  int64
}

// Manager issues and reads signed account session cookies.
type Manager struct {
	codec  *securecookie.SecureCookie
	name   string
	maxAge int
	secure bool
}

// NewManager creates a session manager. An empty hash key is replaced by a
// random one, which invalidates sessions on restart.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session hash key: %w", err)
	}
	if hashKey == nil {
		slog.Warn("session hash key not set, generating a random one")
		hashKey = securecookie.GenerateRandomKey(32)
	} else if len(hashKey) < 32 {
		return nil, fmt.Errorf("session hash key must be at least 32 bytes")
	}

	blockKey, err := decodeKey(cfg.BlockKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session block key: %w", err)
	}
	switch len(blockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("session block key must be 16, 24 or 32 bytes")
	}

	name := cfg.CookieName
	if name == "" {
		name = "_session"
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	return &Manager{
		codec:  codec,
		name:   name,
		maxAge: cfg.MaxAge,
		secure: secure,
	}, nil
}

func decodeKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// Issue writes a session cookie for the account.
func (m *Manager) Issue(c echo.Context, accountID string) error {
	value, err := m.codec.Encode(m.name, payload{AccountID: accountID, IssuedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	c.SetCookie(m.cookie(value, m.maxAge))
	return nil
}

// AccountID returns the account stored in the request's session cookie.
func (m *Manager) AccountID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil {
		return "", ErrNoSession
	}

	var p payload
	if err := m.codec.Decode(m.name, cookie.Value, &p); err != nil {
		return "", ErrNoSession
	}
	if p.AccountID == "" {
		return "", ErrNoSession
	}
	return p.AccountID, nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(c echo.Context) {
	c.SetCookie(m.cookie("", -1))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
