// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analytics serves the supervisor dashboard: productivity and error
// metrics, performance analytics, alerting, and session/error/chat recording
// against the operational warehouse.
//
// Read operations degrade gracefully: a failed query is logged and answered
// with fixed sample data (metrics) or an empty result (analytics), so the
// dashboard stays up while the warehouse is down. Write operations propagate
// their errors; an operational record that cannot be persisted is a caller
// problem, not something to swallow.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/galleyops/galleytrack/services/warehouse"
)

// EmployeeProductivity is one employee's cart-completion throughput.
type EmployeeProductivity struct {
	Username            string  `json:"username"`
	FullName            string  `json:"fullName"`
	TotalCartsCompleted int     `json:"totalCartsCompleted"`
	TotalHoursWorked    float64 `json:"totalHoursWorked"`
	CartsPerHour        float64 `json:"cartsPerHour"`
}

// EmployeeErrorRate is one employee's scan error ratio.
type EmployeeErrorRate struct {
	Username         string  `json:"username"`
	FullName         string  `json:"fullName"`
	TotalErrors      int     `json:"totalErrors"`
	TotalItems       int     `json:"totalItems"`
	ErrorRatePercent float64 `json:"errorRatePercent"`
}

// OverallEfficiency aggregates the whole line.
type OverallEfficiency struct {
	TotalEmployees      int     `json:"totalEmployees"`
	TotalCartsCompleted int     `json:"totalCartsCompleted"`
	TotalHours          float64 `json:"totalHours"`
	AvgCartsPerHour     float64 `json:"avgCartsPerHour"`
	TotalErrors         int     `json:"totalErrors"`
	TotalItemsScanned   int     `json:"totalItemsScanned"`
	OverallErrorRate    float64 `json:"overallErrorRate"`
}

// Dashboard is the combined supervisor snapshot.
type Dashboard struct {
	Productivity []EmployeeProductivity `json:"productivity"`
	ErrorRates   []EmployeeErrorRate    `json:"errorRates"`
	Efficiency   OverallEfficiency      `json:"efficiency"`
	LastUpdated  string                 `json:"lastUpdated"`
}

// MetricsService answers the supervisor metrics queries.
type MetricsService struct {
	db     warehouse.Querier
	logger *slog.Logger
}

// NewMetricsService creates a metrics reader over the given warehouse
// connection. A nil Querier is allowed; every read then serves sample data.
func NewMetricsService(db warehouse.Querier, logger *slog.Logger) *MetricsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsService{db: db, logger: logger}
}

const productivityQuery = `
	SELECT
		u.USERNAME,
		u.FULL_NAME,
		COUNT(c.CART_ID) AS TOTAL_CARTS_COMPLETED,
		COALESCE(SUM(EXTRACT(EPOCH FROM (c.END_TIME - c.START_TIME)) / 3600), 0) AS TOTAL_HOURS_WORKED,
		ROUND(COUNT(c.CART_ID) / NULLIF(SUM(EXTRACT(EPOCH FROM (c.END_TIME - c.START_TIME)) / 3600), 0), 2) AS CARTS_PER_HOUR
	FROM USERS u
	LEFT JOIN CART_COMPLETIONS c ON u.USER_ID = c.USER_ID
	WHERE u.ROLE = 'employee'
		AND c.COMPLETION_DATE BETWEEN $1 AND $2
	GROUP BY u.USERNAME, u.FULL_NAME
	ORDER BY CARTS_PER_HOUR DESC`

// ProductivityByEmployee returns carts completed per hour per employee over
// [startDate, endDate]. Zero times default to the last 7 days. On query
// failure the fixed sample data is returned.
func (s *MetricsService) ProductivityByEmployee(ctx context.Context, startDate, endDate time.Time) []EmployeeProductivity {
	if startDate.IsZero() {
		startDate = time.Now().AddDate(0, 0, -7)
	}
	if endDate.IsZero() {
		endDate = time.Now()
	}

	if s.db == nil {
		return sampleProductivity()
	}

	rows, err := s.db.QueryContext(ctx, productivityQuery, startDate, endDate)
	if err != nil {
		s.logger.Error("productivity query failed, serving sample data", "error", err)
		return sampleProductivity()
	}
	defer rows.Close()

	var out []EmployeeProductivity
	for rows.Next() {
		var p EmployeeProductivity
		var cartsPerHour *float64
		if err := rows.Scan(&p.Username, &p.FullName, &p.TotalCartsCompleted, &p.TotalHoursWorked, &cartsPerHour); err != nil {
			s.logger.Error("productivity scan failed, serving sample data", "error", err)
			return sampleProductivity()
		}
		if cartsPerHour != nil {
			p.CartsPerHour = *cartsPerHour
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("productivity rows failed, serving sample data", "error", err)
		return sampleProductivity()
	}
	return out
}

const errorRateQuery = `
	SELECT
		u.USERNAME,
		u.FULL_NAME,
		COUNT(CASE WHEN i.STATUS = 'error' THEN 1 END) AS TOTAL_ERRORS,
		COUNT(i.ITEM_ID) AS TOTAL_ITEMS,
		ROUND(COUNT(CASE WHEN i.STATUS = 'error' THEN 1 END) * 100.0 / NULLIF(COUNT(i.ITEM_ID), 0), 2) AS ERROR_RATE_PERCENT
	FROM USERS u
	LEFT JOIN INVENTORY_SCANS i ON u.USER_ID = i.USER_ID
	WHERE u.ROLE = 'employee'
	GROUP BY u.USERNAME, u.FULL_NAME
	ORDER BY ERROR_RATE_PERCENT ASC`

// ErrorRateByEmployee returns each employee's scan error percentage. On query
// failure the fixed sample data is returned.
func (s *MetricsService) ErrorRateByEmployee(ctx context.Context) []EmployeeErrorRate {
	if s.db == nil {
		return sampleErrorRates()
	}

	rows, err := s.db.QueryContext(ctx, errorRateQuery)
	if err != nil {
		s.logger.Error("error-rate query failed, serving sample data", "error", err)
		return sampleErrorRates()
	}
	defer rows.Close()

	var out []EmployeeErrorRate
	for rows.Next() {
		var r EmployeeErrorRate
		var rate *float64
		if err := rows.Scan(&r.Username, &r.FullName, &r.TotalErrors, &r.TotalItems, &rate); err != nil {
			s.logger.Error("error-rate scan failed, serving sample data", "error", err)
			return sampleErrorRates()
		}
		if rate != nil {
			r.ErrorRatePercent = *rate
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("error-rate rows failed, serving sample data", "error", err)
		return sampleErrorRates()
	}
	return out
}

const efficiencyQuery = `
	SELECT
		COUNT(DISTINCT u.USER_ID) AS TOTAL_EMPLOYEES,
		COUNT(c.CART_ID) AS TOTAL_CARTS_COMPLETED,
		COALESCE(SUM(EXTRACT(EPOCH FROM (c.END_TIME - c.START_TIME)) / 3600), 0) AS TOTAL_HOURS,
		ROUND(COUNT(c.CART_ID) / NULLIF(SUM(EXTRACT(EPOCH FROM (c.END_TIME - c.START_TIME)) / 3600), 0), 2) AS AVG_CARTS_PER_HOUR,
		COUNT(CASE WHEN i.STATUS = 'error' THEN 1 END) AS TOTAL_ERRORS,
		COUNT(i.ITEM_ID) AS TOTAL_ITEMS_SCANNED,
		ROUND(COUNT(CASE WHEN i.STATUS = 'error' THEN 1 END) * 100.0 / NULLIF(COUNT(i.ITEM_ID), 0), 2) AS OVERALL_ERROR_RATE
	FROM USERS u
	LEFT JOIN CART_COMPLETIONS c ON u.USER_ID = c.USER_ID
	LEFT JOIN INVENTORY_SCANS i ON u.USER_ID = i.USER_ID
	WHERE u.ROLE = 'employee'`

// Efficiency returns the overall line efficiency aggregate. On query failure
// the fixed sample data is returned.
func (s *MetricsService) Efficiency(ctx context.Context) OverallEfficiency {
	if s.db == nil {
		return sampleEfficiency()
	}

	var e OverallEfficiency
	var avgCartsPerHour, overallErrorRate *float64
	err := s.db.QueryRowContext(ctx, efficiencyQuery).Scan(
		&e.TotalEmployees, &e.TotalCartsCompleted, &e.TotalHours,
		&avgCartsPerHour, &e.TotalErrors, &e.TotalItemsScanned, &overallErrorRate,
	)
	if err != nil {
		s.logger.Error("efficiency query failed, serving sample data", "error", err)
		return sampleEfficiency()
	}
	if avgCartsPerHour != nil {
		e.AvgCartsPerHour = *avgCartsPerHour
	}
	if overallErrorRate != nil {
		e.OverallErrorRate = *overallErrorRate
	}
	return e
}

// DashboardData combines productivity, error rates, and efficiency into one
// snapshot for the supervisor dashboard.
func (s *MetricsService) DashboardData(ctx context.Context) Dashboard {
	return Dashboard{
		Productivity: s.ProductivityByEmployee(ctx, time.Time{}, time.Time{}),
		ErrorRates:   s.ErrorRateByEmployee(ctx),
		Efficiency:   s.Efficiency(ctx),
		LastUpdated:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Sample data served when the warehouse is unreachable. Values mirror the
// shape of real aggregates so the dashboard renders sensibly.

func sampleProductivity() []EmployeeProductivity {
	return []EmployeeProductivity{
		{Username: "john_doe", FullName: "John Doe", TotalCartsCompleted: 45, TotalHoursWorked: 40, CartsPerHour: 1.13},
		{Username: "jane_smith", FullName: "Jane Smith", TotalCartsCompleted: 52, TotalHoursWorked: 40, CartsPerHour: 1.30},
		{Username: "bob_johnson", FullName: "Bob Johnson", TotalCartsCompleted: 38, TotalHoursWorked: 40, CartsPerHour: 0.95},
		{Username: "alice_williams", FullName: "Alice Williams", TotalCartsCompleted: 48, TotalHoursWorked: 40, CartsPerHour: 1.20},
	}
}

func sampleErrorRates() []EmployeeErrorRate {
	return []EmployeeErrorRate{
		{Username: "john_doe", FullName: "John Doe", TotalErrors: 3, TotalItems: 450, ErrorRatePercent: 0.67},
		{Username: "jane_smith", FullName: "Jane Smith", TotalErrors: 5, TotalItems: 520, ErrorRatePercent: 0.96},
		{Username: "bob_johnson", FullName: "Bob Johnson", TotalErrors: 8, TotalItems: 380, ErrorRatePercent: 2.11},
		{Username: "alice_williams", FullName: "Alice Williams", TotalErrors: 4, TotalItems: 480, ErrorRatePercent: 0.83},
	}
}

func sampleEfficiency() OverallEfficiency {
	return OverallEfficiency{
		TotalEmployees:      4,
		TotalCartsCompleted: 183,
		TotalHours:          160,
		AvgCartsPerHour:     1.14,
		TotalErrors:         20,
		TotalItemsScanned:   1830,
		OverallErrorRate:    1.09,
	}
}
