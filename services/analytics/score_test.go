// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerformanceScore(t *testing.T) {
	tests := []struct {
		name          string
		itemsPerHour  float64
		errorRate     float64
		accuracyScore float64
		want          float64
	}{
		{"perfect shift", 70, 0, 100, 100.00},
		{"zero everything", 0, 0, 0, 20.00},
		{"speed capped at target", 140, 0, 100, 100.00},
		{"half speed", 35, 0, 100, 85.00},
		{"error penalty floors at zero", 70, 10, 100, 80.00},
		{"two decimal rounding", 50, 1.5, 92.5, 72.68},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PerformanceScore(tt.itemsPerHour, tt.errorRate, tt.accuracyScore)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}
