// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package provision speaks to the two external inventory capabilities:
// flight-inventory lookup and scan validation. Both are opaque services
// reached by shelling out to their executables; their JSON contracts carry
// the Spanish field names of the upstream catering systems and are kept
// verbatim here.
package provision

import (
	"github.com/galleyops/galleytrack/services/inventory"
)

// WireRequiredItem is one manifest line in the external contract.
type WireRequiredItem struct {
	SKU             string  `json:"sku"`
	Quantity        int     `json:"cantidad_requerida"`
	UnitWeightGrams float64 `json:"peso_unitario_g"`
	ToleranceGrams  float64 `json:"peso_tolerancia"`
}

// WireCart is one cart in the external lookup response.
type WireCart struct {
	CartID         string             `json:"cart_id"`
	CartIdentifier string             `json:"cart_identifier"`
	RequiredItems  []WireRequiredItem `json:"items_requeridos"`
}

// WireFlightInventory is the flight-lookup response.
type WireFlightInventory struct {
	FlightNumber string     `json:"flight_number"`
	Carts        []WireCart `json:"carritos"`
	Catalog      []string   `json:"catalogo_nombres"`
	TotalCarts   int        `json:"total_carritos_en_vuelo"`
	Error        string     `json:"error,omitempty"`
}

// WireScannedBox is one photo's evidence in the validation request.
type WireScannedBox struct {
	WeightGrams  float64  `json:"peso_medido_g"`
	DetectedSKUs []string `json:"tipos_detectados_vision"`
}

// WireCartScan is one cart's scan buffer in the validation request.
type WireCartScan struct {
	CartID string           `json:"cart_id"`
	Boxes  []WireScannedBox `json:"cajas_escaneadas"`
}

// WireCartReport is the validator's verdict for one cart.
type WireCartReport struct {
	CartID           string   `json:"cart_id"`
	BoxesScanned     int      `json:"numero_cajas_escaneadas"`
	GrossWeightGrams float64  `json:"peso_bruto_medido_g"`
	TareWeightGrams  float64  `json:"peso_tara_estimado_g"`
	NetWeightGrams   float64  `json:"peso_neto_medido_g"`
	Status           string   `json:"status"`
	Report           []string `json:"reporte"`
}

// WireValidationReport is the full validation response for a flight.
type WireValidationReport struct {
	AnalysisTimestamp string           `json:"analysis_timestamp"`
	FlightNumber      string           `json:"flight_number"`
	AssumedTareGrams  float64          `json:"peso_tara_asumido_por_caja_g"`
	CartReports       []WireCartReport `json:"reporte_carritos"`
	Error             string           `json:"error,omitempty"`
}

// ToFlightInventory converts the wire lookup response to the workflow model.
func (w *WireFlightInventory) ToFlightInventory() *inventory.FlightInventory {
	flight := &inventory.FlightInventory{
		FlightNumber: w.FlightNumber,
		Catalog:      append([]string(nil), w.Catalog...),
	}
	for _, cart := range w.Carts {
		label := cart.CartIdentifier
		if label == "" {
			label = cart.CartID
		}
		c := inventory.Cart{ID: cart.CartID, Label: label}
		for _, item := range cart.RequiredItems {
			c.RequiredItems = append(c.RequiredItems, inventory.RequiredItem{
				SKU:             item.SKU,
				Quantity:        item.Quantity,
				UnitWeightGrams: item.UnitWeightGrams,
				ToleranceGrams:  item.ToleranceGrams,
			})
		}
		flight.Carts = append(flight.Carts, c)
	}
	return flight
}

// toWireScan converts a workflow scan buffer to the validation request shape.
func toWireScan(scan inventory.CartScan) WireCartScan {
	out := WireCartScan{CartID: scan.CartID}
	for _, box := range scan.Boxes {
		out.Boxes = append(out.Boxes, WireScannedBox{
			WeightGrams:  box.WeightGrams,
			DetectedSKUs: box.DetectedSKUs,
		})
	}
	return out
}
