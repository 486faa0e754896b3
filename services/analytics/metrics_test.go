// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*MetricsService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMetricsService(db, nil), mock
}

// ============================================================================
// Productivity
// ============================================================================

func TestProductivityByEmployee(t *testing.T) {
	svc, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{
		"USERNAME", "FULL_NAME", "TOTAL_CARTS_COMPLETED", "TOTAL_HOURS_WORKED", "CARTS_PER_HOUR",
	}).
		AddRow("ana", "Ana Ruiz", 52, 40.0, 1.30).
		AddRow("luis", "Luis Ortega", 38, 40.0, 0.95)
	mock.ExpectQuery("FROM USERS u").WillReturnRows(rows)

	got := svc.ProductivityByEmployee(context.Background(), time.Time{}, time.Time{})
	require.Len(t, got, 2)
	assert.Equal(t, "ana", got[0].Username)
	assert.Equal(t, 1.30, got[0].CartsPerHour)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductivityByEmployee_NullRate(t *testing.T) {
	svc, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{
		"USERNAME", "FULL_NAME", "TOTAL_CARTS_COMPLETED", "TOTAL_HOURS_WORKED", "CARTS_PER_HOUR",
	}).AddRow("ana", "Ana Ruiz", 0, 0.0, nil)
	mock.ExpectQuery("FROM USERS u").WillReturnRows(rows)

	got := svc.ProductivityByEmployee(context.Background(), time.Time{}, time.Time{})
	require.Len(t, got, 1)
	assert.Zero(t, got[0].CartsPerHour)
}

func TestProductivityByEmployee_FallsBackToSampleData(t *testing.T) {
	svc, mock := newMockDB(t)
	mock.ExpectQuery("FROM USERS u").WillReturnError(errors.New("table does not exist"))

	got := svc.ProductivityByEmployee(context.Background(), time.Time{}, time.Time{})
	assert.Equal(t, sampleProductivity(), got)
}

func TestProductivityByEmployee_NilWarehouse(t *testing.T) {
	svc := NewMetricsService(nil, nil)

	got := svc.ProductivityByEmployee(context.Background(), time.Time{}, time.Time{})
	assert.Equal(t, sampleProductivity(), got)
}

// ============================================================================
// Error rates
// ============================================================================

func TestErrorRateByEmployee(t *testing.T) {
	svc, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{
		"USERNAME", "FULL_NAME", "TOTAL_ERRORS", "TOTAL_ITEMS", "ERROR_RATE_PERCENT",
	}).AddRow("ana", "Ana Ruiz", 3, 450, 0.67)
	mock.ExpectQuery("LEFT JOIN INVENTORY_SCANS").WillReturnRows(rows)

	got := svc.ErrorRateByEmployee(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, 0.67, got[0].ErrorRatePercent)
	assert.Equal(t, 450, got[0].TotalItems)
}

func TestErrorRateByEmployee_FallsBackToSampleData(t *testing.T) {
	svc, mock := newMockDB(t)
	mock.ExpectQuery("LEFT JOIN INVENTORY_SCANS").WillReturnError(errors.New("boom"))

	got := svc.ErrorRateByEmployee(context.Background())
	assert.Equal(t, sampleErrorRates(), got)
}

// ============================================================================
// Efficiency and dashboard
// ============================================================================

func TestEfficiency(t *testing.T) {
	svc, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{
		"TOTAL_EMPLOYEES", "TOTAL_CARTS_COMPLETED", "TOTAL_HOURS",
		"AVG_CARTS_PER_HOUR", "TOTAL_ERRORS", "TOTAL_ITEMS_SCANNED", "OVERALL_ERROR_RATE",
	}).AddRow(4, 183, 160.0, 1.14, 20, 1830, 1.09)
	mock.ExpectQuery("COUNT\\(DISTINCT u.USER_ID\\)").WillReturnRows(rows)

	got := svc.Efficiency(context.Background())
	assert.Equal(t, 4, got.TotalEmployees)
	assert.Equal(t, 1.14, got.AvgCartsPerHour)
	assert.Equal(t, 1.09, got.OverallErrorRate)
}

func TestEfficiency_FallsBackToSampleData(t *testing.T) {
	svc, mock := newMockDB(t)
	mock.ExpectQuery("COUNT\\(DISTINCT u.USER_ID\\)").WillReturnError(errors.New("boom"))

	got := svc.Efficiency(context.Background())
	assert.Equal(t, sampleEfficiency(), got)
}

func TestDashboardData_CombinesSections(t *testing.T) {
	svc := NewMetricsService(nil, nil)

	got := svc.DashboardData(context.Background())
	assert.NotEmpty(t, got.Productivity)
	assert.NotEmpty(t, got.ErrorRates)
	assert.NotZero(t, got.Efficiency.TotalEmployees)
	assert.NotEmpty(t, got.LastUpdated)
}
