// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/galleyops/galleytrack/services/analytics"
)

// MetricsDashboard serves the combined supervisor snapshot. The background
// refresher's cached snapshot is preferred; before its first refresh the
// data is fetched directly.
func MetricsDashboard(metrics *analytics.MetricsService, refresher *analytics.Refresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if refresher != nil {
			if snap := refresher.Snapshot(); snap != nil {
				c.JSON(http.StatusOK, snap)
				return
			}
		}
		dashboard := metrics.DashboardData(c.Request.Context())
		c.JSON(http.StatusOK, dashboard)
	}
}

// MetricsProductivity serves per-employee productivity. Optional startDate
// and endDate query params (YYYY-MM-DD) bound the window; unset means the
// last 7 days.
func MetricsProductivity(metrics *analytics.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		startDate, ok := parseDateParam(c, "startDate")
		if !ok {
			return
		}
		endDate, ok := parseDateParam(c, "endDate")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"productivity": metrics.ProductivityByEmployee(c.Request.Context(), startDate, endDate),
		})
	}
}

// MetricsErrorRates serves per-employee error rates.
func MetricsErrorRates(metrics *analytics.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"errorRates": metrics.ErrorRateByEmployee(c.Request.Context()),
		})
	}
}

// MetricsEfficiency serves the overall line efficiency aggregate.
func MetricsEfficiency(metrics *analytics.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"efficiency": metrics.Efficiency(c.Request.Context()),
		})
	}
}

// parseDateParam reads an optional YYYY-MM-DD query param. On a malformed
// value it writes a 400 and returns ok=false.
func parseDateParam(c *gin.Context, name string) (time.Time, bool) {
	value := c.Query(name)
	if value == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": name + " must be YYYY-MM-DD",
		})
		return time.Time{}, false
	}
	return parsed, true
}
