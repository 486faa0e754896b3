// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gateway's HTTP handlers. Each handler is a
// constructor taking its dependencies and returning a gin.HandlerFunc;
// errors leave as {error, message} bodies with the status codes of the
// error taxonomy (400 local validation, 401/403 auth, 409 workflow guard,
// 502 upstream failure, 500 everything else).
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/galleyops/galleytrack/services/gateway/middleware"
	"github.com/galleyops/galleytrack/services/gateway/observability"
	"github.com/galleyops/galleytrack/services/identity"
)

const authCookieMaxAge = 24 * 60 * 60

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a session token, returned in the
// body and as an httpOnly cookie.
func Login(users *identity.UserStore, tokens *identity.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "username and password are required",
			})
			return
		}

		user, err := users.FindByUsername(c.Request.Context(), req.Username)
		if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
			slog.Error("user lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal",
				"message": "could not verify credentials",
			})
			return
		}
		// Same answer for an unknown user and a wrong password.
		if err != nil || !identity.VerifyPassword(req.Password, user.PasswordHash) {
			observability.DefaultMetrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid username or password",
			})
			return
		}

		token, err := tokens.Issue(user)
		if err != nil {
			slog.Error("token issuance failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal",
				"message": "could not issue session token",
			})
			return
		}

		user.PasswordHash = ""
		c.SetCookie(middleware.AuthCookieName, token, authCookieMaxAge, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

// Logout clears the auth cookie.
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// Me returns the authenticated user's record.
func Me(users *identity.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.GetClaims(c)

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if errors.Is(err, identity.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "user no longer exists",
			})
			return
		}
		if err != nil {
			slog.Error("user lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal",
				"message": "could not load user",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
