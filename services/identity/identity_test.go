// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// UserStore
// ============================================================================

func TestFindByUsername_DevUser(t *testing.T) {
	store := NewUserStore(nil)

	user, err := store.FindByUsername(context.Background(), "employee@gategroup.com")
	require.NoError(t, err)
	assert.Equal(t, RoleEmployee, user.Role)
	assert.Equal(t, "Test Employee", user.FullName)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestFindByUsername_DevUserPasswords(t *testing.T) {
	store := NewUserStore(nil)

	tests := []struct {
		username string
		password string
	}{
		{"employee@gategroup.com", "employee123"},
		{"supervisor@gategroup.com", "supervisor123"},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			user, err := store.FindByUsername(context.Background(), tt.username)
			require.NoError(t, err)
			assert.True(t, VerifyPassword(tt.password, user.PasswordHash))
			assert.False(t, VerifyPassword("wrong-password", user.PasswordHash))
		})
	}
}

func TestFindByUsername_UnknownWithoutWarehouse(t *testing.T) {
	store := NewUserStore(nil)

	_, err := store.FindByUsername(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFindByUsername_Warehouse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"USER_ID", "USERNAME", "PASSWORD_HASH", "ROLE", "FULL_NAME", "EMAIL", "CREATED_AT",
	}).AddRow("u-77", "ana@gategroup.com", "$2b$10$hash", "employee", "Ana Ruiz", "ana@gategroup.com", created)
	mock.ExpectQuery("SELECT USER_ID, USERNAME, PASSWORD_HASH").
		WithArgs("ana@gategroup.com").
		WillReturnRows(rows)

	store := NewUserStore(db)
	user, err := store.FindByUsername(context.Background(), "ana@gategroup.com")
	require.NoError(t, err)
	assert.Equal(t, "u-77", user.ID)
	assert.Equal(t, "Ana Ruiz", user.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_OmitsPasswordHash(t *testing.T) {
	store := NewUserStore(nil)

	user, err := store.FindByID(context.Background(), "a1b2c3d4-e5f6-7890-abcd-111111111111")
	require.NoError(t, err)
	assert.Equal(t, RoleSupervisor, user.Role)
	assert.Empty(t, user.PasswordHash)
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("s3cret", hash))
	assert.False(t, VerifyPassword("S3cret", hash))
}

// ============================================================================
// TokenManager
// ============================================================================

func TestTokenManager_IssueAndVerify(t *testing.T) {
	mgr := NewTokenManager("test-secret", time.Hour)
	user := &User{ID: "u-1", Username: "ana@gategroup.com", Role: RoleEmployee}

	token, err := mgr.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "ana@gategroup.com", claims.Username)
	assert.Equal(t, RoleEmployee, claims.Role)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue(&User{ID: "u-1", Username: "x", Role: RoleEmployee})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	// Negative ttl falls back to 24h in the constructor, so build the
	// expired manager directly.
	mgr := &TokenManager{secret: []byte("test-secret"), ttl: -time.Minute}

	token, err := mgr.Issue(&User{ID: "u-1", Username: "x", Role: RoleEmployee})
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	mgr := NewTokenManager("test-secret", time.Hour)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := mgr.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
