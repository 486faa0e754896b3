// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testCatalog = []string{"VASO_CARTON", "CANELITAS_35G", "SERVILLETA_PACK", "CAFE_SOLUBLE"}

func TestExactReconciler(t *testing.T) {
	r := ExactReconciler{}

	sku, ok := r.Reconcile("vaso_carton", testCatalog)
	assert.True(t, ok)
	assert.Equal(t, "VASO_CARTON", sku)

	_, ok = r.Reconcile("vaso", testCatalog)
	assert.False(t, ok)
}

func TestFuzzyReconciler(t *testing.T) {
	r := FuzzyReconciler{}

	tests := []struct {
		name   string
		label  string
		want   string
		wantOK bool
	}{
		{"exact", "CANELITAS_35G", "CANELITAS_35G", true},
		{"case and separator folding", "canelitas 35g", "CANELITAS_35G", true},
		{"label is substring of sku", "canelitas", "CANELITAS_35G", true},
		{"sku is substring of label", "canelitas_35g_promo", "CANELITAS_35G", true},
		{"shared prefix", "cafe_instantaneo", "CAFE_SOLUBLE", true},
		{"no match dropped", "galletas_maria", "", false},
		{"empty label dropped", "  ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sku, ok := r.Reconcile(tt.label, testCatalog)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, sku)
		})
	}
}

func TestReconcileLabels_SubsetOfCatalogAndDeduplicated(t *testing.T) {
	labels := []string{"vaso", "VASO_CARTON", "canelitas", "something_else", "servilleta"}

	got := reconcileLabels(FuzzyReconciler{}, labels, testCatalog)

	assert.Equal(t, []string{"VASO_CARTON", "CANELITAS_35G", "SERVILLETA_PACK"}, got)
	inCatalog := map[string]bool{}
	for _, sku := range testCatalog {
		inCatalog[sku] = true
	}
	for _, sku := range got {
		assert.True(t, inCatalog[sku], "reconciled SKU %s must come from the catalog", sku)
	}
}
