// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/galleyops/galleytrack/pkg/validation"
	"github.com/galleyops/galleytrack/services/gateway/observability"
	"github.com/galleyops/galleytrack/services/provision"
)

var inventoryTracer = otel.Tracer("galleytrack/gateway/inventory")

type flightLookupRequest struct {
	FlightNumber string `json:"flight_number" binding:"required"`
}

// FlightLookup resolves a flight's cart manifest through the external
// lookup capability and returns its wire shape untranslated. Upstream
// failures propagate as 502 with the process's stderr as detail.
func FlightLookup(provider provision.Provider, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req flightLookupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "flight_number is required",
			})
			return
		}
		flight, err := validation.SanitizeFlightNumber(req.FlightNumber)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": err.Error(),
			})
			return
		}

		ctx, span := inventoryTracer.Start(c.Request.Context(), "flight_lookup")
		span.SetAttributes(attribute.String("flight_number", flight))
		defer span.End()

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		wire, err := provider.FlightInventory(ctx, flight)
		if err != nil {
			slog.Error("flight lookup failed", "flight", req.FlightNumber, "error", err)
			observability.DefaultMetrics.RequestsTotal.WithLabelValues("flight_lookup", "error").Inc()
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "upstream",
				"message": err.Error(),
			})
			return
		}

		observability.DefaultMetrics.RequestsTotal.WithLabelValues("flight_lookup", "success").Inc()
		c.JSON(http.StatusOK, wire)
	}
}

type validateRequest struct {
	FlightNumber string                   `json:"flight_number" binding:"required"`
	ScannedData  []provision.WireCartScan `json:"scanned_data" binding:"required"`
}

// ValidateScans submits scanned carts to the external validation capability
// and returns the full report untranslated.
func ValidateScans(provider provision.Provider, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "flight_number and scanned_data are required",
			})
			return
		}
		flight, err := validation.SanitizeFlightNumber(req.FlightNumber)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": err.Error(),
			})
			return
		}

		ctx, span := inventoryTracer.Start(c.Request.Context(), "validate_scans")
		span.SetAttributes(
			attribute.String("flight_number", flight),
			attribute.Int("carts", len(req.ScannedData)),
		)
		defer span.End()

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		report, err := provider.Validate(ctx, flight, req.ScannedData)
		if err != nil {
			slog.Error("validation failed", "flight", req.FlightNumber, "error", err)
			observability.DefaultMetrics.RequestsTotal.WithLabelValues("validate", "error").Inc()
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "upstream",
				"message": err.Error(),
			})
			return
		}

		for _, cartReport := range report.CartReports {
			observability.DefaultMetrics.ValidationsTotal.WithLabelValues(cartReport.Status).Inc()
		}
		observability.DefaultMetrics.RequestsTotal.WithLabelValues("validate", "success").Inc()
		c.JSON(http.StatusOK, report)
	}
}
