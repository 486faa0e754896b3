// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/galleyops/galleytrack/services/analytics"
)

// AnalyticsDashboard serves the enhanced analytics dashboard.
func AnalyticsDashboard(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Dashboard(c.Request.Context()))
	}
}

// AnalyticsTrends serves the last 30 days of performance trends.
func AnalyticsTrends(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"trends": svc.PerformanceTrends(c.Request.Context())})
	}
}

// AnalyticsErrorDistribution serves the error-type distribution.
func AnalyticsErrorDistribution(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"distribution": svc.ErrorDistribution(c.Request.Context())})
	}
}

// AnalyticsEmployees serves the per-employee 7-day rollup with scores.
func AnalyticsEmployees(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"employees": svc.EmployeeMetrics(c.Request.Context())})
	}
}

// AnalyticsAlerts serves the active alerts.
func AnalyticsAlerts(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"alerts": svc.ActiveAlerts(c.Request.Context())})
	}
}

// AnalyticsSustainability serves the 30-day sustainability rollup.
func AnalyticsSustainability(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sustainability": svc.SustainabilityMetrics(c.Request.Context())})
	}
}

// AnalyticsTrainingNeeds serves open training recommendations.
func AnalyticsTrainingNeeds(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"trainingNeeds": svc.TrainingNeeds(c.Request.Context())})
	}
}

// RecordSession persists a completed inventory session. Write failures
// propagate as 500.
func RecordSession(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec analytics.SessionRecord
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "malformed session record: " + err.Error(),
			})
			return
		}
		if err := svc.RecordSession(c.Request.Context(), rec); err != nil {
			slog.Error("session record write failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": rec.SessionID})
	}
}

// LogError persists one validation error. Write failures propagate as 500.
func LogError(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec analytics.ErrorRecord
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "malformed error record: " + err.Error(),
			})
			return
		}
		if err := svc.LogError(c.Request.Context(), rec); err != nil {
			slog.Error("error log write failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type createAlertRequest struct {
	AlertType  string `json:"alertType" binding:"required"`
	Severity   string `json:"severity"`
	EmployeeID string `json:"employeeId"`
	Title      string `json:"title" binding:"required"`
	Message    string `json:"message"`
}

// CreateAlert raises a new alert. Write failures propagate as 500.
func CreateAlert(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createAlertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "alertType and title are required",
			})
			return
		}
		err := svc.CreateAlert(c.Request.Context(), req.AlertType, req.Severity, req.EmployeeID, req.Title, req.Message)
		if err != nil {
			slog.Error("alert write failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// AcknowledgeAlert marks an alert acknowledged. Write failures propagate
// as 500.
func AcknowledgeAlert(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		alertID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "alert id must be numeric",
			})
			return
		}
		if err := svc.AcknowledgeAlert(c.Request.Context(), alertID); err != nil {
			slog.Error("alert acknowledge failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
