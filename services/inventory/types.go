// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package inventory drives the cart-by-cart flight inventory validation
// workflow: flight lookup, per-cart photo-scan accumulation, external
// validation, and completion tracking.
//
// The workflow is a synchronous state machine. Every external collaborator
// (flight lookup, vision analysis, scan validation) sits behind an interface
// and is bounded by a per-call deadline; no call is retried automatically.
package inventory

import (
	"context"
	"time"
)

// State is the workflow's position in the validation process.
type State string

const (
	// StateFlightInput waits for a flight number.
	StateFlightInput State = "flight_input"
	// StateCartSelection waits for the operator to pick an uncompleted cart.
	StateCartSelection State = "cart_selection"
	// StateScanning accumulates photo scans for the active cart.
	StateScanning State = "scanning"
	// StateComplete means every cart on the flight has validated.
	StateComplete State = "complete"
)

// RequiredItem is one line of a cart's manifest.
type RequiredItem struct {
	SKU             string  `json:"sku"`
	Quantity        int     `json:"quantity"`
	UnitWeightGrams float64 `json:"unitWeightGrams"`
	ToleranceGrams  float64 `json:"toleranceGrams"`
}

// Cart is one physical cart with its required-items manifest.
type Cart struct {
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	RequiredItems []RequiredItem `json:"requiredItems"`
}

// FlightInventory is the looked-up manifest for one flight: the ordered
// carts plus the closed SKU catalog that constrains vision recognition.
// Immutable for the lifetime of the workflow.
type FlightInventory struct {
	FlightNumber string   `json:"flightNumber"`
	Carts        []Cart   `json:"carts"`
	Catalog      []string `json:"catalog"`
}

// Cart returns the cart with the given ID, or nil.
func (f *FlightInventory) Cart(cartID string) *Cart {
	for i := range f.Carts {
		if f.Carts[i].ID == cartID {
			return &f.Carts[i]
		}
	}
	return nil
}

// ScannedBox is one photograph's worth of evidence: the measured weight and
// the recognized SKUs, already reconciled against the catalog.
type ScannedBox struct {
	WeightGrams  float64  `json:"weightGrams"`
	DetectedSKUs []string `json:"detectedSkus"`
}

// BoxObservation is the raw vision output for one photo, before label
// reconciliation. Labels may contain values outside the catalog.
type BoxObservation struct {
	WeightGrams float64
	Labels      []string
}

// ValidationResult is the external validation service's verdict on one
// cart's scan buffer. Status vocabulary is the external contract
// (OK, ERROR_VISUAL, WARNING_VISUAL, ERROR_PESO, ERROR).
type ValidationResult struct {
	Status        string   `json:"status"`
	Summary       string   `json:"summary"`
	Discrepancies []string `json:"discrepancies"`
}

// Succeeded reports whether the result counts as a pass.
func (r *ValidationResult) Succeeded() bool {
	return r != nil && r.Status == StatusOK
}

// External validation status vocabulary.
const (
	StatusOK            = "OK"
	StatusErrorVisual   = "ERROR_VISUAL"
	StatusWarningVisual = "WARNING_VISUAL"
	StatusErrorWeight   = "ERROR_PESO"
	StatusError         = "ERROR"
)

// CartScan is one cart's scan buffer as submitted for validation.
type CartScan struct {
	CartID string       `json:"cartId"`
	Boxes  []ScannedBox `json:"boxes"`
}

// FlightLookup resolves a flight number to its inventory manifest.
type FlightLookup interface {
	LookupFlight(ctx context.Context, flightNumber string) (*FlightInventory, error)
}

// VisionAnalyzer extracts a box observation from one photo. The expected
// SKUs and the full catalog are passed so the analyzer can constrain its
// recognition vocabulary.
type VisionAnalyzer interface {
	AnalyzeBox(ctx context.Context, image []byte, expected, catalog []string) (*BoxObservation, error)
}

// ScanValidator is the external pass/fail authority for a cart's scans.
// The workflow never re-derives the verdict itself.
type ScanValidator interface {
	Validate(ctx context.Context, flightNumber string, scan CartScan) (*ValidationResult, error)
}

// Params are the workflow's deadlines and display delays.
type Params struct {
	LookupTimeout       time.Duration
	VisionTimeout       time.Duration
	ValidationTimeout   time.Duration
	SuccessDisplayDelay time.Duration
	FailureDisplayDelay time.Duration
}

// DefaultParams mirrors the production configuration defaults.
func DefaultParams() Params {
	return Params{
		LookupTimeout:       15 * time.Second,
		VisionTimeout:       60 * time.Second,
		ValidationTimeout:   30 * time.Second,
		SuccessDisplayDelay: 3 * time.Second,
		FailureDisplayDelay: 5 * time.Second,
	}
}
