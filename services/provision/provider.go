// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/galleyops/galleytrack/services/inventory"
)

// Provider is the contract with the external inventory capabilities.
// Implementations return the wire shapes untranslated; adapters below map
// them into the workflow model.
type Provider interface {
	// FlightInventory resolves a flight number to its cart manifest.
	FlightInventory(ctx context.Context, flightNumber string) (*WireFlightInventory, error)
	// Validate submits scanned carts and returns the validation report.
	Validate(ctx context.Context, flightNumber string, scans []WireCartScan) (*WireValidationReport, error)
}

// Lookup adapts a Provider to the workflow's FlightLookup interface.
type Lookup struct {
	Provider Provider
}

// LookupFlight resolves and converts the flight manifest.
func (l Lookup) LookupFlight(ctx context.Context, flightNumber string) (*inventory.FlightInventory, error) {
	wire, err := l.Provider.FlightInventory(ctx, flightNumber)
	if err != nil {
		return nil, err
	}
	return wire.ToFlightInventory(), nil
}

// Validator adapts a Provider to the workflow's ScanValidator interface.
// The workflow validates one cart at a time; the cart's report becomes the
// ValidationResult.
type Validator struct {
	Provider Provider
}

// Validate submits one cart's scan buffer and extracts its verdict.
func (v Validator) Validate(ctx context.Context, flightNumber string, scan inventory.CartScan) (*inventory.ValidationResult, error) {
	report, err := v.Provider.Validate(ctx, flightNumber, []WireCartScan{toWireScan(scan)})
	if err != nil {
		return nil, err
	}

	for _, cartReport := range report.CartReports {
		if cartReport.CartID != scan.CartID {
			continue
		}
		return &inventory.ValidationResult{
			Status:        cartReport.Status,
			Summary:       summarize(cartReport),
			Discrepancies: cartReport.Report,
		}, nil
	}
	return nil, fmt.Errorf("validation report is missing cart %s", scan.CartID)
}

func summarize(r WireCartReport) string {
	if r.Status == inventory.StatusOK {
		return fmt.Sprintf("Cart %s validated: %d boxes, %.2fg net", r.CartID, r.BoxesScanned, r.NetWeightGrams)
	}
	if len(r.Report) > 0 {
		return strings.Join(r.Report, "; ")
	}
	return fmt.Sprintf("Cart %s failed validation (%s)", r.CartID, r.Status)
}
