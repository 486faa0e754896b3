// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the gateway service.
//
// # Authentication Flow
//
// The auth middleware accepts a session token from either the Authorization
// header ("Bearer <token>") or the auth cookie, header taking precedence.
// A missing or invalid token is a 401; a valid token with an insufficient
// role is a 403 from the role gate. Decoded claims are stored in the Gin
// context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	RequireAuth
//	   │
//	   ├─► Extract token (Authorization header, else cookie)
//	   │
//	   ├─► tokens.Verify(token)
//	   │
//	   └─► Store Claims in context
//	           │
//	           ▼
//	       RequireRole / Handler (retrieves via GetClaims)
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/galleyops/galleytrack/services/identity"
)

// AuthCookieName is the httpOnly cookie carrying the session token.
const AuthCookieName = "galleytrack_token"

// claimsKey is the context key for storing decoded token claims.
const claimsKey = "galleytrack_claims"

// SetClaims stores the decoded token claims in the Gin context.
func SetClaims(c *gin.Context, claims *identity.Claims) {
	c.Set(claimsKey, claims)
}

// GetClaims retrieves the decoded token claims, or nil if the request did
// not pass RequireAuth.
func GetClaims(c *gin.Context) *identity.Claims {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*identity.Claims)
	if !ok {
		return nil
	}
	return claims
}

// ExtractToken returns the session token from the request: the Authorization
// bearer value when present, otherwise the auth cookie. Empty when neither
// carries a token.
func ExtractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	cookie, err := c.Cookie(AuthCookieName)
	if err != nil {
		return ""
	}
	return cookie
}

// RequireAuth validates the session token and stores its claims.
//
// 401 with {error, message} when the token is missing or invalid.
func RequireAuth(tokens *identity.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "authentication token required",
			})
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid or expired token",
			})
			return
		}

		SetClaims(c, claims)
		c.Next()
	}
}

// RequireRole rejects authenticated requests whose role is not in the
// allowed set. Must run after RequireAuth.
//
// 403 with {error, message} on an insufficient role.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "authentication token required",
			})
			return
		}
		if !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "insufficient role for this resource",
			})
			return
		}
		c.Next()
	}
}
