// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/galleyops/galleytrack/services/warehouse"
)

// PerformanceTrend is one day of line-wide performance.
type PerformanceTrend struct {
	Date      string  `json:"date"`
	Sessions  int     `json:"sessions"`
	Employees int     `json:"employees"`
	Items     int     `json:"items"`
	Errors    int     `json:"errors"`
	ErrorRate float64 `json:"errorRate"`
	AvgTime   float64 `json:"avgTime"`
}

// ErrorTypeShare is one error type's share of all logged errors.
type ErrorTypeShare struct {
	Type            string  `json:"type"`
	Count           int     `json:"count"`
	Percentage      float64 `json:"percentage"`
	CriticalPercent float64 `json:"criticalPercent"`
}

// EmployeeMetric is one employee's 7-day performance rollup, including the
// computed performance score.
type EmployeeMetric struct {
	EmployeeID       string  `json:"employeeId"`
	Username         string  `json:"username"`
	FullName         string  `json:"fullName"`
	Sessions         int     `json:"sessions"`
	Items            int     `json:"items"`
	Errors           int     `json:"errors"`
	AvgDuration      float64 `json:"avgDuration"`
	ErrorRate        float64 `json:"errorRate"`
	ItemsPerHour     float64 `json:"itemsPerHour"`
	AccuracyScore    float64 `json:"accuracyScore"`
	PerformanceScore float64 `json:"performanceScore"`
}

// Alert is one active operational alert.
type Alert struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Severity   string    `json:"severity"`
	EmployeeID string    `json:"employeeId"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Sustainability is the 30-day sustainability rollup. Nil when no rows exist.
type Sustainability struct {
	ErrorsPrevented int     `json:"errorsPrevented"`
	WasteReduction  float64 `json:"wasteReduction"`
	TimeSaved       int     `json:"timeSaved"`
	Efficiency      float64 `json:"efficiency"`
	CostSavings     float64 `json:"costSavings"`
	CarbonReduction float64 `json:"carbonReduction"`
}

// TrainingNeed is one open training recommendation.
type TrainingNeed struct {
	ID           int64   `json:"id"`
	EmployeeID   string  `json:"employeeId"`
	SkillArea    string  `json:"skillArea"`
	Priority     string  `json:"priority"`
	CurrentScore float64 `json:"currentScore"`
	TargetScore  float64 `json:"targetScore"`
	Status       string  `json:"status"`
	Notes        string  `json:"notes"`
}

// EnhancedDashboard bundles every analytics read into one payload.
type EnhancedDashboard struct {
	PerformanceTrends []PerformanceTrend `json:"performanceTrends"`
	ErrorDistribution []ErrorTypeShare   `json:"errorDistribution"`
	EmployeeMetrics   []EmployeeMetric   `json:"employeeMetrics"`
	Alerts            []Alert            `json:"alerts"`
	Sustainability    *Sustainability    `json:"sustainabilityMetrics"`
	LastUpdated       string             `json:"lastUpdated"`
}

// SessionRecord is the payload for recording a completed inventory session.
type SessionRecord struct {
	SessionID      string     `json:"sessionId"`
	FlightNumber   string     `json:"flightNumber"`
	CartID         string     `json:"cartId"`
	EmployeeID     string     `json:"employeeId"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	PhotosTaken    int        `json:"photosTaken"`
	ItemsScanned   int        `json:"itemsScanned"`
	ErrorsDetected int        `json:"errorsDetected"`
	Status         string     `json:"status"`
}

// ErrorRecord is the payload for logging a validation error.
type ErrorRecord struct {
	SessionID     string `json:"sessionId"`
	EmployeeID    string `json:"employeeId"`
	FlightNumber  string `json:"flightNumber"`
	CartID        string `json:"cartId"`
	ErrorType     string `json:"errorType"`
	Description   string `json:"description"`
	ProductSKU    string `json:"productSku"`
	ExpectedValue string `json:"expectedValue"`
	ActualValue   string `json:"actualValue"`
	Severity      string `json:"severity"`
}

// ChatRecord is the payload for persisting one assistant exchange.
type ChatRecord struct {
	SessionID   string         `json:"sessionId"`
	UserID      string         `json:"userId"`
	UserMessage string         `json:"userMessage"`
	AIResponse  string         `json:"aiResponse"`
	ContextData map[string]any `json:"contextData"`
	Sentiment   string         `json:"sentiment"`
	ActionTaken string         `json:"actionTaken"`
}

// Service answers the analytics queries and persists operational records.
//
// Reads degrade to empty results on failure; writes propagate failure.
type Service struct {
	db     warehouse.Querier
	logger *slog.Logger
}

// NewService creates an analytics service over the given warehouse connection.
func NewService(db warehouse.Querier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

// ----------------------------------------------------------------------------
// Reads
// ----------------------------------------------------------------------------

const performanceTrendsQuery = `
	SELECT METRIC_DATE, TOTAL_SESSIONS, ACTIVE_EMPLOYEES, TOTAL_ITEMS,
		TOTAL_ERRORS, ERROR_RATE, AVG_SESSION_MINUTES
	FROM VW_DAILY_PERFORMANCE_TRENDS
	ORDER BY METRIC_DATE DESC
	LIMIT 30`

// PerformanceTrends returns the last 30 days of line performance, newest
// first. Empty on query failure.
func (s *Service) PerformanceTrends(ctx context.Context) []PerformanceTrend {
	if s.db == nil {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, performanceTrendsQuery)
	if err != nil {
		s.logger.Error("performance trends query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var out []PerformanceTrend
	for rows.Next() {
		var t PerformanceTrend
		if err := rows.Scan(&t.Date, &t.Sessions, &t.Employees, &t.Items, &t.Errors, &t.ErrorRate, &t.AvgTime); err != nil {
			s.logger.Error("performance trends scan failed", "error", err)
			return nil
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("performance trends rows failed", "error", err)
		return nil
	}
	return out
}

const errorDistributionQuery = `
	SELECT ERROR_TYPE, ERROR_COUNT, PERCENTAGE, CRITICAL_PERCENT
	FROM VW_ERROR_TYPE_DISTRIBUTION`

// ErrorDistribution returns the share of each error type. Empty on failure.
func (s *Service) ErrorDistribution(ctx context.Context) []ErrorTypeShare {
	if s.db == nil {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, errorDistributionQuery)
	if err != nil {
		s.logger.Error("error distribution query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var out []ErrorTypeShare
	for rows.Next() {
		var e ErrorTypeShare
		if err := rows.Scan(&e.Type, &e.Count, &e.Percentage, &e.CriticalPercent); err != nil {
			s.logger.Error("error distribution scan failed", "error", err)
			return nil
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("error distribution rows failed", "error", err)
		return nil
	}
	return out
}

const employeeMetricsQuery = `
	SELECT EMPLOYEE_ID, USERNAME, FULL_NAME, TOTAL_SESSIONS, TOTAL_ITEMS,
		TOTAL_ERRORS, AVG_SESSION_DURATION, ERROR_RATE, ITEMS_PER_HOUR, ACCURACY_SCORE
	FROM VW_EMPLOYEE_PERFORMANCE_7D
	ORDER BY ITEMS_PER_HOUR DESC`

// EmployeeMetrics returns the 7-day per-employee rollup with the computed
// performance score attached. Empty on failure.
func (s *Service) EmployeeMetrics(ctx context.Context) []EmployeeMetric {
	if s.db == nil {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, employeeMetricsQuery)
	if err != nil {
		s.logger.Error("employee metrics query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var out []EmployeeMetric
	for rows.Next() {
		var m EmployeeMetric
		if err := rows.Scan(&m.EmployeeID, &m.Username, &m.FullName, &m.Sessions, &m.Items,
			&m.Errors, &m.AvgDuration, &m.ErrorRate, &m.ItemsPerHour, &m.AccuracyScore); err != nil {
			s.logger.Error("employee metrics scan failed", "error", err)
			return nil
		}
		m.PerformanceScore = PerformanceScore(m.ItemsPerHour, m.ErrorRate, m.AccuracyScore)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("employee metrics rows failed", "error", err)
		return nil
	}
	return out
}

const activeAlertsQuery = `
	SELECT ALERT_ID, ALERT_TYPE, SEVERITY, EMPLOYEE_ID, TITLE, MESSAGE, STATUS, CREATED_AT
	FROM REAL_TIME_ALERTS
	WHERE STATUS = 'ACTIVE'
	ORDER BY
		CASE SEVERITY
			WHEN 'CRITICAL' THEN 1
			WHEN 'HIGH' THEN 2
			WHEN 'MEDIUM' THEN 3
			ELSE 4
		END,
		CREATED_AT DESC
	LIMIT 20`

// ActiveAlerts returns up to 20 active alerts, most severe first. Empty on
// failure.
func (s *Service) ActiveAlerts(ctx context.Context) []Alert {
	if s.db == nil {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, activeAlertsQuery)
	if err != nil {
		s.logger.Error("active alerts query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.EmployeeID, &a.Title, &a.Message, &a.Status, &a.CreatedAt); err != nil {
			s.logger.Error("active alerts scan failed", "error", err)
			return nil
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("active alerts rows failed", "error", err)
		return nil
	}
	return out
}

const sustainabilityQuery = `
	SELECT ERRORS_PREVENTED, WASTE_REDUCTION_KG, TIME_SAVED_MINUTES,
		PROCESS_EFFICIENCY_PERCENT, COST_SAVINGS_USD, CARBON_FOOTPRINT_REDUCTION_KG
	FROM SUSTAINABILITY_METRICS
	WHERE METRIC_DATE >= CURRENT_DATE - INTERVAL '30 days'
	ORDER BY METRIC_DATE DESC`

// SustainabilityMetrics sums the last 30 days of sustainability rows.
// Efficiency keeps the maximum seen rather than the sum. Nil when there are
// no rows or the query fails.
func (s *Service) SustainabilityMetrics(ctx context.Context) *Sustainability {
	if s.db == nil {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, sustainabilityQuery)
	if err != nil {
		s.logger.Error("sustainability query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var total Sustainability
	found := false
	for rows.Next() {
		var errorsPrevented, timeSaved int
		var waste, efficiency, cost, carbon float64
		if err := rows.Scan(&errorsPrevented, &waste, &timeSaved, &efficiency, &cost, &carbon); err != nil {
			s.logger.Error("sustainability scan failed", "error", err)
			return nil
		}
		total.ErrorsPrevented += errorsPrevented
		total.WasteReduction += waste
		total.TimeSaved += timeSaved
		if efficiency > total.Efficiency {
			total.Efficiency = efficiency
		}
		total.CostSavings += cost
		total.CarbonReduction += carbon
		found = true
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("sustainability rows failed", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return &total
}

const trainingNeedsQuery = `
	SELECT TRAINING_ID, EMPLOYEE_ID, SKILL_AREA, PRIORITY, CURRENT_SCORE,
		TARGET_SCORE, STATUS, NOTES
	FROM TRAINING_NEEDS
	WHERE STATUS IN ('PENDING', 'IN_PROGRESS')
	ORDER BY
		CASE PRIORITY
			WHEN 'URGENT' THEN 1
			WHEN 'HIGH' THEN 2
			WHEN 'MEDIUM' THEN 3
			ELSE 4
		END,
		IDENTIFIED_DATE DESC`

// TrainingNeeds returns open training recommendations, most urgent first.
// Empty on failure.
func (s *Service) TrainingNeeds(ctx context.Context) []TrainingNeed {
	if s.db == nil {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, trainingNeedsQuery)
	if err != nil {
		s.logger.Error("training needs query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var out []TrainingNeed
	for rows.Next() {
		var t TrainingNeed
		if err := rows.Scan(&t.ID, &t.EmployeeID, &t.SkillArea, &t.Priority, &t.CurrentScore, &t.TargetScore, &t.Status, &t.Notes); err != nil {
			s.logger.Error("training needs scan failed", "error", err)
			return nil
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("training needs rows failed", "error", err)
		return nil
	}
	return out
}

// Dashboard assembles every analytics read into one snapshot.
func (s *Service) Dashboard(ctx context.Context) EnhancedDashboard {
	return EnhancedDashboard{
		PerformanceTrends: s.PerformanceTrends(ctx),
		ErrorDistribution: s.ErrorDistribution(ctx),
		EmployeeMetrics:   s.EmployeeMetrics(ctx),
		Alerts:            s.ActiveAlerts(ctx),
		Sustainability:    s.SustainabilityMetrics(ctx),
		LastUpdated:       time.Now().UTC().Format(time.RFC3339),
	}
}

// ----------------------------------------------------------------------------
// Writes
// ----------------------------------------------------------------------------

const recordSessionQuery = `
	INSERT INTO INVENTORY_SESSIONS (
		SESSION_ID, FLIGHT_NUMBER, CART_ID, EMPLOYEE_ID,
		START_TIME, END_TIME, DURATION_SECONDS,
		PHOTOS_TAKEN, ITEMS_SCANNED, ERRORS_DETECTED, STATUS
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// RecordSession persists a completed inventory session.
func (s *Service) RecordSession(ctx context.Context, rec SessionRecord) error {
	if s.db == nil {
		return fmt.Errorf("recording session: warehouse unavailable")
	}

	var durationSeconds *int64
	var endTime *time.Time
	if rec.EndTime != nil && !rec.StartTime.IsZero() {
		d := int64(rec.EndTime.Sub(rec.StartTime).Seconds())
		durationSeconds = &d
		endTime = rec.EndTime
	}
	status := rec.Status
	if status == "" {
		status = "COMPLETED"
	}

	_, err := s.db.ExecContext(ctx, recordSessionQuery,
		rec.SessionID, rec.FlightNumber, rec.CartID, rec.EmployeeID,
		rec.StartTime, endTime, durationSeconds,
		rec.PhotosTaken, rec.ItemsScanned, rec.ErrorsDetected, status,
	)
	if err != nil {
		return fmt.Errorf("recording session: %w", err)
	}
	return nil
}

const logErrorQuery = `
	INSERT INTO ERROR_LOG (
		SESSION_ID, EMPLOYEE_ID, FLIGHT_NUMBER, CART_ID,
		ERROR_TYPE, ERROR_DESCRIPTION, PRODUCT_SKU,
		EXPECTED_VALUE, ACTUAL_VALUE, SEVERITY
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// LogError persists one validation error for later analysis.
func (s *Service) LogError(ctx context.Context, rec ErrorRecord) error {
	if s.db == nil {
		return fmt.Errorf("logging error: warehouse unavailable")
	}

	severity := rec.Severity
	if severity == "" {
		severity = "MEDIUM"
	}

	_, err := s.db.ExecContext(ctx, logErrorQuery,
		rec.SessionID, rec.EmployeeID, rec.FlightNumber, rec.CartID,
		rec.ErrorType, rec.Description, rec.ProductSKU,
		rec.ExpectedValue, rec.ActualValue, severity,
	)
	if err != nil {
		return fmt.Errorf("logging error: %w", err)
	}
	return nil
}

const createAlertQuery = `
	INSERT INTO REAL_TIME_ALERTS (ALERT_TYPE, SEVERITY, EMPLOYEE_ID, TITLE, MESSAGE)
	VALUES ($1, $2, $3, $4, $5)`

// CreateAlert raises a new alert. Severity defaults to MEDIUM.
func (s *Service) CreateAlert(ctx context.Context, alertType, severity, employeeID, title, message string) error {
	if s.db == nil {
		return fmt.Errorf("creating alert: warehouse unavailable")
	}

	if severity == "" {
		severity = "MEDIUM"
	}

	_, err := s.db.ExecContext(ctx, createAlertQuery, alertType, severity, employeeID, title, message)
	if err != nil {
		return fmt.Errorf("creating alert: %w", err)
	}
	return nil
}

const acknowledgeAlertQuery = `
	UPDATE REAL_TIME_ALERTS
	SET STATUS = 'ACKNOWLEDGED', ACKNOWLEDGED_AT = CURRENT_TIMESTAMP
	WHERE ALERT_ID = $1`

// AcknowledgeAlert marks an alert acknowledged.
func (s *Service) AcknowledgeAlert(ctx context.Context, alertID int64) error {
	if s.db == nil {
		return fmt.Errorf("acknowledging alert: warehouse unavailable")
	}

	if _, err := s.db.ExecContext(ctx, acknowledgeAlertQuery, alertID); err != nil {
		return fmt.Errorf("acknowledging alert: %w", err)
	}
	return nil
}

const saveChatQuery = `
	INSERT INTO AI_CHAT_HISTORY (
		SESSION_ID, USER_ID, USER_MESSAGE, AI_RESPONSE,
		CONTEXT_DATA, SENTIMENT, ACTION_TAKEN
	) VALUES ($1, $2, $3, $4, $5, $6, $7)`

// SaveChatInteraction persists one assistant exchange. Context data is
// serialized to JSON; an empty map is stored when absent.
func (s *Service) SaveChatInteraction(ctx context.Context, rec ChatRecord) error {
	if s.db == nil {
		return fmt.Errorf("saving chat interaction: warehouse unavailable")
	}

	contextData := rec.ContextData
	if contextData == nil {
		contextData = map[string]any{}
	}
	contextJSON, err := json.Marshal(contextData)
	if err != nil {
		return fmt.Errorf("marshaling chat context: %w", err)
	}

	_, err = s.db.ExecContext(ctx, saveChatQuery,
		rec.SessionID, rec.UserID, rec.UserMessage, rec.AIResponse,
		string(contextJSON), rec.Sentiment, rec.ActionTaken,
	)
	if err != nil {
		return fmt.Errorf("saving chat interaction: %w", err)
	}
	return nil
}
