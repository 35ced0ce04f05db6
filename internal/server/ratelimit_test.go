// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimiter_Allow(t *testing.T) {
	clock := testutil.NewClock()
	rl := newRateLimiter(rate.Every(time.Second), 2)
	rl.now = clock.Now

	assert.True(t, rl.allow("192.0.2.1"))
	assert.True(t, rl.allow("192.0.2.1"))
	assert.False(t, rl.allow("192.0.2.1"))
	assert.True(t, rl.allow("192.0.2.2"), "other clients have their own bucket")

	clock.Advance(time.Second)
	assert.True(t, rl.allow("192.0.2.1"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := testutil.NewClock()
	rl := newRateLimiter(rate.Every(time.Second), 1)
	rl.now = clock.Now

	rl.allow("192.0.2.1")
	clock.Advance(5 * time.Minute)
	rl.allow("192.0.2.2")
	clock.Advance(6 * time.Minute)

	rl.cleanup(10 * time.Minute)

	assert.Equal(t, 1, rl.size())
}

func TestRateLimiter_RunStopsWithContext(t *testing.T) {
	rl := newRateLimiter(rate.Every(time.Second), 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rl.run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := newRateLimiter(rate.Every(time.Minute), 1)
	e := echo.New()
	e.Use(rl.middleware())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:4321"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, send().Code)

	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.Contains(t, rec.Body.String(), `"error":"too_many_requests"`)
}
