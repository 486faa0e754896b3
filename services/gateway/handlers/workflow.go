// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/galleyops/galleytrack/pkg/validation"
	"github.com/galleyops/galleytrack/services/gateway/observability"
	"github.com/galleyops/galleytrack/services/inventory"
)

// CreateWorkflowSession starts a new workflow session.
func CreateWorkflowSession(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := reg.Create()
		c.JSON(http.StatusCreated, gin.H{
			"sessionId": id,
			"state":     inventory.StateFlightInput,
		})
	}
}

// GetWorkflowSession returns a session's current snapshot.
func GetWorkflowSession(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, ok := sessionWorkflow(c, reg)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, wf.Snapshot())
	}
}

// DeleteWorkflowSession discards a session.
func DeleteWorkflowSession(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg.Delete(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type submitFlightRequest struct {
	FlightNumber string `json:"flight_number" binding:"required"`
}

// WorkflowSubmitFlight drives the submit-flight event.
func WorkflowSubmitFlight(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, ok := sessionWorkflow(c, reg)
		if !ok {
			return
		}
		var req submitFlightRequest
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

		err = wf.SubmitFlight(c.Request.Context(), flight)
		finishWorkflowEvent(c, wf, "submit_flight", err)
	}
}

type selectCartRequest struct {
	CartID string `json:"cart_id" binding:"required"`
}

// WorkflowSelectCart drives the select-cart event.
func WorkflowSelectCart(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, ok := sessionWorkflow(c, reg)
		if !ok {
			return
		}
		var req selectCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "cart_id is required",
			})
			return
		}

		err := wf.SelectCart(req.CartID)
		finishWorkflowEvent(c, wf, "select_cart", err)
	}
}

type capturePhotoRequest struct {
	// Image is the captured photo, base64 encoded.
	Image string `json:"image" binding:"required"`
}

// WorkflowCapturePhoto stores a captured photo pending vision processing.
func WorkflowCapturePhoto(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, ok := sessionWorkflow(c, reg)
		if !ok {
			return
		}
		var req capturePhotoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "image is required",
			})
			return
		}
		image, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil || len(image) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "image must be non-empty base64",
			})
			return
		}

		err = wf.CapturePhoto(image)
		finishWorkflowEvent(c, wf, "capture_photo", err)
	}
}

// WorkflowProcessPhoto sends the pending photo through vision analysis.
func WorkflowProcessPhoto(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, ok := sessionWorkflow(c, reg)
		if !ok {
			return
		}

		box, err := wf.ProcessPhoto(c.Request.Context())
		if err == nil {
			observability.DefaultMetrics.VisionCallsTotal.WithLabelValues("success").Inc()
			c.JSON(http.StatusOK, gin.H{"box": box, "snapshot": wf.Snapshot()})
			return
		}
		observability.DefaultMetrics.VisionCallsTotal.WithLabelValues("error").Inc()
		writeWorkflowError(c, "process_photo", err)
	}
}

// WorkflowSubmitValidation submits the scan buffer for validation.
func WorkflowSubmitValidation(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, ok := sessionWorkflow(c, reg)
		if !ok {
			return
		}

		result, err := wf.SubmitForValidation(c.Request.Context())
		if err == nil {
			observability.DefaultMetrics.ValidationsTotal.WithLabelValues(result.Status).Inc()
			observability.DefaultMetrics.WorkflowTransitionsTotal.WithLabelValues("submit_validation", "ok").Inc()
			c.JSON(http.StatusOK, gin.H{"result": result, "snapshot": wf.Snapshot()})
			return
		}
		writeWorkflowError(c, "submit_validation", err)
	}
}

// WorkflowFinishDisplay clears the displayed validation result after its
// delay.
func WorkflowFinishDisplay(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, ok := sessionWorkflow(c, reg)
		if !ok {
			return
		}
		err := wf.FinishResultDisplay()
		finishWorkflowEvent(c, wf, "finish_display", err)
	}
}

// WorkflowBack abandons the active cart and returns to cart selection.
func WorkflowBack(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, ok := sessionWorkflow(c, reg)
		if !ok {
			return
		}
		err := wf.BackToSelection()
		finishWorkflowEvent(c, wf, "back_to_selection", err)
	}
}

// WorkflowReset returns the session to flight input.
func WorkflowReset(reg *inventory.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, ok := sessionWorkflow(c, reg)
		if !ok {
			return
		}
		wf.Reset()
		observability.DefaultMetrics.WorkflowTransitionsTotal.WithLabelValues("reset", "ok").Inc()
		c.JSON(http.StatusOK, wf.Snapshot())
	}
}

// sessionWorkflow resolves the :id path param to a live workflow, writing a
// 404 when the session is unknown or expired.
func sessionWorkflow(c *gin.Context, reg *inventory.Registry) (*inventory.Workflow, bool) {
	wf, err := reg.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "workflow session not found or expired",
		})
		return nil, false
	}
	return wf, true
}

// finishWorkflowEvent reports one event's outcome: the fresh snapshot on
// success, a mapped error otherwise.
func finishWorkflowEvent(c *gin.Context, wf *inventory.Workflow, event string, err error) {
	if err == nil {
		observability.DefaultMetrics.WorkflowTransitionsTotal.WithLabelValues(event, "ok").Inc()
		c.JSON(http.StatusOK, wf.Snapshot())
		return
	}
	writeWorkflowError(c, event, err)
}

// writeWorkflowError maps workflow errors to status codes: guard rejections
// are 409, local input problems 400, external failures 502.
func writeWorkflowError(c *gin.Context, event string, err error) {
	switch {
	case errors.Is(err, inventory.ErrEmptyFlightNumber),
		errors.Is(err, inventory.ErrNoPendingImage),
		errors.Is(err, inventory.ErrEmptyScanBuffer):
		observability.DefaultMetrics.WorkflowTransitionsTotal.WithLabelValues(event, "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
	case errors.Is(err, inventory.ErrInvalidTransition),
		errors.Is(err, inventory.ErrCartCompleted),
		errors.Is(err, inventory.ErrUnknownCart),
		errors.Is(err, inventory.ErrNoResultDisplayed),
		errors.Is(err, inventory.ErrDisplayDelay):
		observability.DefaultMetrics.WorkflowTransitionsTotal.WithLabelValues(event, "rejected").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	default:
		slog.Error("workflow external call failed", "event", event, "error", err)
		observability.DefaultMetrics.WorkflowTransitionsTotal.WithLabelValues(event, "error").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream", "message": err.Error()})
	}
}
