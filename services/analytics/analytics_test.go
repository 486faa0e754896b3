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

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, nil), mock
}

// ============================================================================
// Reads degrade to empty on failure
// ============================================================================

func TestReads_DegradeToEmptyOnFailure(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("VW_DAILY_PERFORMANCE_TRENDS").WillReturnError(errors.New("down"))
	mock.ExpectQuery("VW_ERROR_TYPE_DISTRIBUTION").WillReturnError(errors.New("down"))
	mock.ExpectQuery("VW_EMPLOYEE_PERFORMANCE_7D").WillReturnError(errors.New("down"))
	mock.ExpectQuery("REAL_TIME_ALERTS").WillReturnError(errors.New("down"))
	mock.ExpectQuery("SUSTAINABILITY_METRICS").WillReturnError(errors.New("down"))
	mock.ExpectQuery("TRAINING_NEEDS").WillReturnError(errors.New("down"))

	ctx := context.Background()
	assert.Empty(t, svc.PerformanceTrends(ctx))
	assert.Empty(t, svc.ErrorDistribution(ctx))
	assert.Empty(t, svc.EmployeeMetrics(ctx))
	assert.Empty(t, svc.ActiveAlerts(ctx))
	assert.Nil(t, svc.SustainabilityMetrics(ctx))
	assert.Empty(t, svc.TrainingNeeds(ctx))
}

func TestEmployeeMetrics_AttachesPerformanceScore(t *testing.T) {
	svc, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{
		"EMPLOYEE_ID", "USERNAME", "FULL_NAME", "TOTAL_SESSIONS", "TOTAL_ITEMS",
		"TOTAL_ERRORS", "AVG_SESSION_DURATION", "ERROR_RATE", "ITEMS_PER_HOUR", "ACCURACY_SCORE",
	}).AddRow("u-1", "ana", "Ana Ruiz", 12, 840, 0, 22.5, 0.0, 70.0, 100.0)
	mock.ExpectQuery("VW_EMPLOYEE_PERFORMANCE_7D").WillReturnRows(rows)

	got := svc.EmployeeMetrics(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, 100.00, got[0].PerformanceScore)
}

func TestSustainabilityMetrics_SumsWindowKeepsMaxEfficiency(t *testing.T) {
	svc, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{
		"ERRORS_PREVENTED", "WASTE_REDUCTION_KG", "TIME_SAVED_MINUTES",
		"PROCESS_EFFICIENCY_PERCENT", "COST_SAVINGS_USD", "CARBON_FOOTPRINT_REDUCTION_KG",
	}).
		AddRow(5, 12.5, 30, 91.0, 140.0, 8.2).
		AddRow(3, 7.5, 15, 88.0, 60.0, 4.8)
	mock.ExpectQuery("SUSTAINABILITY_METRICS").WillReturnRows(rows)

	got := svc.SustainabilityMetrics(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, 8, got.ErrorsPrevented)
	assert.InDelta(t, 20.0, got.WasteReduction, 0.001)
	assert.Equal(t, 45, got.TimeSaved)
	assert.InDelta(t, 91.0, got.Efficiency, 0.001)
	assert.InDelta(t, 200.0, got.CostSavings, 0.001)
	assert.InDelta(t, 13.0, got.CarbonReduction, 0.001)
}

func TestSustainabilityMetrics_NilWhenNoRows(t *testing.T) {
	svc, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{
		"ERRORS_PREVENTED", "WASTE_REDUCTION_KG", "TIME_SAVED_MINUTES",
		"PROCESS_EFFICIENCY_PERCENT", "COST_SAVINGS_USD", "CARBON_FOOTPRINT_REDUCTION_KG",
	})
	mock.ExpectQuery("SUSTAINABILITY_METRICS").WillReturnRows(rows)

	assert.Nil(t, svc.SustainabilityMetrics(context.Background()))
}

func TestActiveAlerts(t *testing.T) {
	svc, mock := newMockService(t)

	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"ALERT_ID", "ALERT_TYPE", "SEVERITY", "EMPLOYEE_ID", "TITLE", "MESSAGE", "STATUS", "CREATED_AT",
	}).AddRow(7, "HIGH_ERROR_RATE", "CRITICAL", "u-3", "Error spike", "Error rate above 5%", "ACTIVE", created)
	mock.ExpectQuery("REAL_TIME_ALERTS").WillReturnRows(rows)

	got := svc.ActiveAlerts(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, "CRITICAL", got[0].Severity)
}

// ============================================================================
// Writes propagate failure
// ============================================================================

func TestRecordSession(t *testing.T) {
	svc, mock := newMockService(t)

	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(25 * time.Minute)

	mock.ExpectExec("INSERT INTO INVENTORY_SESSIONS").
		WithArgs("s-1", "AM241", "KSSU_123", "u-1", start, end, sqlmock.AnyArg(), 4, 48, 1, "COMPLETED").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := svc.RecordSession(context.Background(), SessionRecord{
		SessionID:    "s-1",
		FlightNumber: "AM241",
		CartID:       "KSSU_123",
		EmployeeID:   "u-1",
		StartTime:    start,
		EndTime:      &end,
		PhotosTaken:  4, ItemsScanned: 48, ErrorsDetected: 1,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSession_PropagatesFailure(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectExec("INSERT INTO INVENTORY_SESSIONS").WillReturnError(errors.New("constraint violation"))

	err := svc.RecordSession(context.Background(), SessionRecord{SessionID: "s-1"})
	assert.ErrorContains(t, err, "recording session")
}

func TestLogError_DefaultSeverity(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec("INSERT INTO ERROR_LOG").
		WithArgs("s-1", "u-1", "AM241", "KSSU_123", "MISSING_ITEM", "short one box",
			"VASO_CARTON", "3", "2", "MEDIUM").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := svc.LogError(context.Background(), ErrorRecord{
		SessionID: "s-1", EmployeeID: "u-1", FlightNumber: "AM241", CartID: "KSSU_123",
		ErrorType: "MISSING_ITEM", Description: "short one box",
		ProductSKU: "VASO_CARTON", ExpectedValue: "3", ActualValue: "2",
	})
	assert.NoError(t, err)
}

func TestCreateAlert_PropagatesFailure(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectExec("INSERT INTO REAL_TIME_ALERTS").WillReturnError(errors.New("down"))

	err := svc.CreateAlert(context.Background(), "HIGH_ERROR_RATE", "", "u-1", "t", "m")
	assert.ErrorContains(t, err, "creating alert")
}

func TestAcknowledgeAlert(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectExec("UPDATE REAL_TIME_ALERTS").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.AcknowledgeAlert(context.Background(), 7))
}

func TestSaveChatInteraction_SerializesContext(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec("INSERT INTO AI_CHAT_HISTORY").
		WithArgs("s-1", "u-1", "how is the line doing", "all good",
			`{"page":"dashboard"}`, "neutral", "none").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := svc.SaveChatInteraction(context.Background(), ChatRecord{
		SessionID: "s-1", UserID: "u-1",
		UserMessage: "how is the line doing", AIResponse: "all good",
		ContextData: map[string]any{"page": "dashboard"},
		Sentiment:   "neutral", ActionTaken: "none",
	})
	assert.NoError(t, err)
}

func TestWrites_NilWarehouseIsAnError(t *testing.T) {
	svc := NewService(nil, nil)
	ctx := context.Background()

	assert.Error(t, svc.RecordSession(ctx, SessionRecord{}))
	assert.Error(t, svc.LogError(ctx, ErrorRecord{}))
	assert.Error(t, svc.CreateAlert(ctx, "t", "", "", "", ""))
	assert.Error(t, svc.AcknowledgeAlert(ctx, 1))
	assert.Error(t, svc.SaveChatInteraction(ctx, ChatRecord{}))
}
