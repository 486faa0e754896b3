// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package identity implements credential verification and session tokens.
//
// Two concerns live here:
//
//   - UserStore: looks up operator records in the warehouse and verifies a
//     submitted password against the stored bcrypt hash.
//   - TokenManager: mints and validates the signed session tokens carried by
//     every protected request (see token.go).
//
// The store carries two built-in development accounts so a checkout without a
// warehouse can still log in. They are matched before any query is issued.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/galleyops/galleytrack/services/warehouse"
)

// Role values recognized by the role gate.
const (
	RoleEmployee   = "employee"
	RoleSupervisor = "supervisor"
)

// ErrUserNotFound is returned when no record matches the given identifier.
var ErrUserNotFound = errors.New("user not found")

// User is one operator record. PasswordHash is only populated by
// FindByUsername; every other lookup omits it.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserStore looks up and verifies operator records.
type UserStore struct {
	db warehouse.Querier
}

// NewUserStore creates a store backed by the given warehouse connection.
// A nil Querier is allowed; the store then serves only the built-in
// development accounts.
func NewUserStore(db warehouse.Querier) *UserStore {
	return &UserStore{db: db}
}

// devUsers are the built-in development accounts. Passwords are
// "employee123" and "supervisor123" respectively.
var devUsers = map[string]User{
	"employee@gategroup.com": {
		ID:           "z9y8x7w6-v5u4-3210-zyxw-222222222222",
		Username:     "employee@gategroup.com",
		PasswordHash: "$2b$10$omWVBNKhInrccvn9ET9TCOUSuq9l4iRisMG6.KV910rINRMmcK9B6",
		Role:         RoleEmployee,
		FullName:     "Test Employee",
		Email:        "employee@gategroup.com",
	},
	"supervisor@gategroup.com": {
		ID:           "a1b2c3d4-e5f6-7890-abcd-111111111111",
		Username:     "supervisor@gategroup.com",
		PasswordHash: "$2b$10$ZixGV.ue54arZOVIZjgok.xBq59YllH5tXpaLG98xIO8u94.Tpz/m",
		Role:         RoleSupervisor,
		FullName:     "Test Supervisor",
		Email:        "supervisor@gategroup.com",
	},
}

// FindByUsername returns the user record for a username, including the
// password hash for verification.
//
// # Outputs
//
//   - *User: The matching record.
//   - error: ErrUserNotFound if no record matches; otherwise the query error.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	if u, ok := devUsers[username]; ok {
		u.CreatedAt = time.Now()
		return &u, nil
	}

	if s.db == nil {
		return nil, ErrUserNotFound
	}

	const query = `
		SELECT USER_ID, USERNAME, PASSWORD_HASH, ROLE, FULL_NAME, EMAIL, CREATED_AT
		FROM USERS
		WHERE USERNAME = $1`

	var u User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &u.Email, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by username: %w", err)
	}
	return &u, nil
}

// FindByID returns the user record for an ID, without the password hash.
func (s *UserStore) FindByID(ctx context.Context, userID string) (*User, error) {
	for _, u := range devUsers {
		if u.ID == userID {
			u.PasswordHash = ""
			u.CreatedAt = time.Now()
			return &u, nil
		}
	}

	if s.db == nil {
		return nil, ErrUserNotFound
	}

	const query = `
		SELECT USER_ID, USERNAME, ROLE, FULL_NAME, EMAIL, CREATED_AT
		FROM USERS
		WHERE USER_ID = $1`

	var u User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID, &u.Username, &u.Role, &u.FullName, &u.Email, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return &u, nil
}

// VerifyPassword checks a plaintext password against a stored bcrypt hash.
// Returns true only on an exact match; any bcrypt error counts as a mismatch.
func VerifyPassword(password, passwordHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil
}

// HashPassword produces a bcrypt hash for a new account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
