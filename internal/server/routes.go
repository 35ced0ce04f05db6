// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/oliverandrich/coursehub/internal/handlers"
	"github.com/labstack/echo/v4"
)

func setupRoutes(e *echo.Echo, h *handlers.Handlers, limiter *rateLimiter) {
	e.GET("/health", h.Health)

	api := e.Group("/api")
	if limiter != nil {
		api.Use(limiter.middleware())
	}

	signup := api.Group("/signup")
	signup.POST("/request", h.RequestCode)
	signup.POST("/verify", h.VerifyCode)
	signup.POST("/complete", h.CompleteSignup)
	signup.GET("/stage", h.Stage)

	password := api.Group("/password")
	password.POST("/request", h.RequestResetCode)
	password.POST("/verify", h.VerifyResetCode)
	password.POST("/reset", h.ResetPassword)

	auth := api.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)

	acct := api.Group("/account", requireAccount())
	acct.GET("", h.Me)
	acct.PATCH("", h.UpdateProfile)
}
