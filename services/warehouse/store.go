// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package warehouse is the access seam to the operational data warehouse.
//
// The warehouse itself is an external collaborator; this package only owns
// the connection and a small query surface so the metrics, analytics, and
// identity services do not hold *sql.DB handles directly. Tests substitute
// the Querier interface with sqlmock.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Postgres driver, registered via database/sql.
	_ "github.com/lib/pq"
)

// Querier is the minimal query surface the data-access services depend on.
//
// *sql.DB satisfies it, as does sqlmock's database handle in tests.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store wraps the warehouse connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to the warehouse and verifies the connection.
//
// # Inputs
//
//   - ctx: Bounds the connectivity check.
//   - dsn: Postgres connection string. Empty DSN is an error; callers that
//     can run without a warehouse (development mode) should not call Open.
//
// # Outputs
//
//   - *Store: Connected store ready for queries.
//   - error: Non-nil on a bad DSN or an unreachable warehouse.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("warehouse DSN is empty")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening warehouse connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging warehouse: %w", err)
	}

	slog.Info("connected to warehouse")
	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an existing database handle.
//
// Used by tests to inject a sqlmock handle.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the Querier surface of the pool.
func (s *Store) DB() Querier {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
