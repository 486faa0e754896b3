// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package inventory

import "strings"

// Reconciler repairs a recognized label against the closed catalog.
//
// # Description
//
// The vision service is instructed to answer only with catalog SKUs, but its
// output is not trusted: every label passes through a Reconciler before
// entering a ScannedBox. A label the strategy cannot place in the catalog is
// dropped. After reconciliation a box's SKU set is always a subset of the
// catalog.
//
// The strategy is swappable because the repair policy is correctness
// critical: a fuzzy match that maps "vaso" to "VASO_CARTON" is convenient on
// the line but unacceptable in an audit-strict deployment.
type Reconciler interface {
	// Reconcile maps one raw label to a catalog SKU. ok is false when the
	// label has no acceptable match and must be dropped.
	Reconcile(label string, catalog []string) (sku string, ok bool)
}

// ExactReconciler accepts only labels already present in the catalog,
// compared case-insensitively.
type ExactReconciler struct{}

// Reconcile returns the catalog entry equal to the label, ignoring case.
func (ExactReconciler) Reconcile(label string, catalog []string) (string, bool) {
	needle := normalizeLabel(label)
	for _, sku := range catalog {
		if normalizeLabel(sku) == needle {
			return sku, true
		}
	}
	return "", false
}

// FuzzyReconciler is the default strategy: exact match first, then
// substring containment in either direction, then shared prefix. The first
// catalog entry that matches wins, so catalog order breaks ties.
type FuzzyReconciler struct {
	// MinPrefix is the shortest shared prefix accepted for a prefix match.
	// Zero means the default of 4.
	MinPrefix int
}

// Reconcile maps a label to its nearest catalog SKU.
func (r FuzzyReconciler) Reconcile(label string, catalog []string) (string, bool) {
	needle := normalizeLabel(label)
	if needle == "" {
		return "", false
	}

	for _, sku := range catalog {
		if normalizeLabel(sku) == needle {
			return sku, true
		}
	}

	for _, sku := range catalog {
		candidate := normalizeLabel(sku)
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return sku, true
		}
	}

	minPrefix := r.MinPrefix
	if minPrefix <= 0 {
		minPrefix = 4
	}
	for _, sku := range catalog {
		if sharedPrefixLen(normalizeLabel(sku), needle) >= minPrefix {
			return sku, true
		}
	}

	return "", false
}

// normalizeLabel lowercases and trims a label and folds separators so
// "Vaso Carton" and "vaso_carton" compare equal.
func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func sharedPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// reconcileLabels applies the strategy to a raw label list, deduplicating
// while preserving first-seen order. The result is a subset of catalog.
func reconcileLabels(r Reconciler, labels, catalog []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		sku, ok := r.Reconcile(label, catalog)
		if !ok || seen[sku] {
			continue
		}
		seen[sku] = true
		out = append(out, sku)
	}
	return out
}
