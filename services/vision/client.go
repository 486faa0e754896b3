// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package vision extracts box observations from scan photos via an external
// vision-capable model. The model is told the closed SKU catalog and the
// cart's expected items and must answer with a strict JSON object; anything
// that does not validate against the schema is rejected, never partially
// accepted.
package vision

import "context"

// Observation is one photo's validated vision output: the measured weight
// and the recognized labels. Labels are schema-validated (strings, non-empty
// object) but not yet reconciled against the catalog; that repair belongs to
// the workflow layer.
type Observation struct {
	WeightGrams float64  `json:"peso_medido_g"`
	Labels      []string `json:"tipos_detectados_vision"`
}

// Client defines the interface for any vision backend.
type Client interface {
	AnalyzeBox(ctx context.Context, image []byte, expected, catalog []string) (*Observation, error)
}
