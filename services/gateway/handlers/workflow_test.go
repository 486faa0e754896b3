// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleyops/galleytrack/services/inventory"
)

// =============================================================================
// Workflow Fakes
// =============================================================================

type stubLookup struct {
	flight *inventory.FlightInventory
	err    error
}

func (s stubLookup) LookupFlight(_ context.Context, _ string) (*inventory.FlightInventory, error) {
	return s.flight, s.err
}

type stubVision struct {
	obs *inventory.BoxObservation
	err error
}

func (s stubVision) AnalyzeBox(_ context.Context, _ []byte, _, _ []string) (*inventory.BoxObservation, error) {
	return s.obs, s.err
}

type stubValidator struct {
	result *inventory.ValidationResult
	err    error
}

func (s stubValidator) Validate(_ context.Context, _ string, _ inventory.CartScan) (*inventory.ValidationResult, error) {
	return s.result, s.err
}

func stubFlight() *inventory.FlightInventory {
	return &inventory.FlightInventory{
		FlightNumber: "AM241",
		Carts: []inventory.Cart{
			{ID: "KSSU_123", Label: "Cart 1", RequiredItems: []inventory.RequiredItem{
				{SKU: "VASO_CARTON", Quantity: 10, UnitWeightGrams: 12, ToleranceGrams: 5},
			}},
		},
		Catalog: []string{"VASO_CARTON", "CANELITAS_35G"},
	}
}

func workflowRouter(lookup inventory.FlightLookup, vision inventory.VisionAnalyzer, validator inventory.ScanValidator) (*gin.Engine, *inventory.Registry) {
	newWorkflow := func() *inventory.Workflow {
		return inventory.NewWorkflow(lookup, vision, validator, nil, nil, inventory.DefaultParams())
	}
	reg := inventory.NewRegistry(newWorkflow, 0, nil, nil)

	router := gin.New()
	group := router.Group("/api/workflow/sessions")
	group.POST("", CreateWorkflowSession(reg))
	group.GET("/:id", GetWorkflowSession(reg))
	group.DELETE("/:id", DeleteWorkflowSession(reg))
	group.POST("/:id/flight", WorkflowSubmitFlight(reg))
	group.POST("/:id/cart", WorkflowSelectCart(reg))
	group.POST("/:id/photo", WorkflowCapturePhoto(reg))
	group.POST("/:id/photo/process", WorkflowProcessPhoto(reg))
	group.POST("/:id/validate", WorkflowSubmitValidation(reg))
	group.POST("/:id/back", WorkflowBack(reg))
	group.POST("/:id/reset", WorkflowReset(reg))
	return router, reg
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := postJSON(t, router, "/api/workflow/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

// =============================================================================
// Session Lifecycle Tests
// =============================================================================

func TestCreateWorkflowSession(t *testing.T) {
	router, reg := workflowRouter(stubLookup{flight: stubFlight()}, stubVision{}, stubValidator{})

	id := createSession(t, router)

	assert.Equal(t, 1, reg.Len())

	req := httptest.NewRequest("GET", "/api/workflow/sessions/"+id, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(inventory.StateFlightInput))
}

func TestGetWorkflowSession_Unknown(t *testing.T) {
	router, _ := workflowRouter(stubLookup{flight: stubFlight()}, stubVision{}, stubValidator{})

	req := httptest.NewRequest("GET", "/api/workflow/sessions/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestDeleteWorkflowSession(t *testing.T) {
	router, reg := workflowRouter(stubLookup{flight: stubFlight()}, stubVision{}, stubValidator{})
	id := createSession(t, router)

	req := httptest.NewRequest("DELETE", "/api/workflow/sessions/"+id, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, reg.Len())
}

// =============================================================================
// Event Tests
// =============================================================================

func TestWorkflowSubmitFlight(t *testing.T) {
	router, _ := workflowRouter(stubLookup{flight: stubFlight()}, stubVision{}, stubValidator{})
	id := createSession(t, router)

	w := postJSON(t, router, "/api/workflow/sessions/"+id+"/flight", `{"flight_number": "AM241"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(inventory.StateCartSelection))
}

func TestWorkflowSubmitFlight_MissingBody(t *testing.T) {
	router, _ := workflowRouter(stubLookup{flight: stubFlight()}, stubVision{}, stubValidator{})
	id := createSession(t, router)

	w := postJSON(t, router, "/api/workflow/sessions/"+id+"/flight", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowSubmitFlight_LookupFailure(t *testing.T) {
	router, _ := workflowRouter(stubLookup{err: fmt.Errorf("script exploded")}, stubVision{}, stubValidator{})
	id := createSession(t, router)

	w := postJSON(t, router, "/api/workflow/sessions/"+id+"/flight", `{"flight_number": "AM241"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream")
}

func TestWorkflowSelectCart_WrongState(t *testing.T) {
	router, _ := workflowRouter(stubLookup{flight: stubFlight()}, stubVision{}, stubValidator{})
	id := createSession(t, router)

	// Still in flight input, so selecting a cart is a guard rejection.
	w := postJSON(t, router, "/api/workflow/sessions/"+id+"/cart", `{"cart_id": "KSSU_123"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "conflict")
}

func TestWorkflowCapturePhoto_BadBase64(t *testing.T) {
	router, _ := workflowRouter(stubLookup{flight: stubFlight()}, stubVision{}, stubValidator{})
	id := createSession(t, router)
	postJSON(t, router, "/api/workflow/sessions/"+id+"/flight", `{"flight_number": "AM241"}`)
	postJSON(t, router, "/api/workflow/sessions/"+id+"/cart", `{"cart_id": "KSSU_123"}`)

	w := postJSON(t, router, "/api/workflow/sessions/"+id+"/photo", `{"image": "%%%not-base64%%%"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowScanAndValidate(t *testing.T) {
	vision := stubVision{obs: &inventory.BoxObservation{
		WeightGrams: 120,
		Labels:      []string{"vaso carton"},
	}}
	validator := stubValidator{result: &inventory.ValidationResult{
		Status:  inventory.StatusOK,
		Summary: "Cart KSSU_123 validated",
	}}
	router, _ := workflowRouter(stubLookup{flight: stubFlight()}, vision, validator)
	id := createSession(t, router)

	postJSON(t, router, "/api/workflow/sessions/"+id+"/flight", `{"flight_number": "AM241"}`)
	postJSON(t, router, "/api/workflow/sessions/"+id+"/cart", `{"cart_id": "KSSU_123"}`)

	image := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))
	w := postJSON(t, router, "/api/workflow/sessions/"+id+"/photo", `{"image": "`+image+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/api/workflow/sessions/"+id+"/photo/process", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "VASO_CARTON")

	w = postJSON(t, router, "/api/workflow/sessions/"+id+"/validate", "")
	require.Equal(t, http.StatusOK, w.Code)
	// The only cart passed, so the flight is complete.
	assert.Contains(t, w.Body.String(), string(inventory.StateComplete))
	assert.Contains(t, w.Body.String(), inventory.StatusOK)
}

func TestWorkflowSubmitValidation_EmptyBuffer(t *testing.T) {
	router, _ := workflowRouter(stubLookup{flight: stubFlight()}, stubVision{}, stubValidator{})
	id := createSession(t, router)
	postJSON(t, router, "/api/workflow/sessions/"+id+"/flight", `{"flight_number": "AM241"}`)
	postJSON(t, router, "/api/workflow/sessions/"+id+"/cart", `{"cart_id": "KSSU_123"}`)

	w := postJSON(t, router, "/api/workflow/sessions/"+id+"/validate", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowBackAndReset(t *testing.T) {
	router, _ := workflowRouter(stubLookup{flight: stubFlight()}, stubVision{}, stubValidator{})
	id := createSession(t, router)
	postJSON(t, router, "/api/workflow/sessions/"+id+"/flight", `{"flight_number": "AM241"}`)
	postJSON(t, router, "/api/workflow/sessions/"+id+"/cart", `{"cart_id": "KSSU_123"}`)

	w := postJSON(t, router, "/api/workflow/sessions/"+id+"/back", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(inventory.StateCartSelection))

	w = postJSON(t, router, "/api/workflow/sessions/"+id+"/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(inventory.StateFlightInput))
}
