// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaViolation is returned when the model's answer does not conform to
// the requested JSON schema.
var ErrSchemaViolation = errors.New("vision response violates output schema")

// BuildPrompt writes the instruction sent alongside the image: what the cart
// should contain, the closed recognition vocabulary, and the exact JSON
// shape expected back.
func BuildPrompt(expected, catalog []string) string {
	var b strings.Builder
	b.WriteString("You are analyzing one photo of a sealed catering box on a scale.\n")
	b.WriteString("Report the weight shown on the scale display in grams and the product types visible on the box labels.\n\n")

	if len(expected) > 0 {
		b.WriteString("Products expected in this cart: ")
		b.WriteString(strings.Join(expected, ", "))
		b.WriteString("\n")
	}
	b.WriteString("Valid product identifiers (answer ONLY with values from this list): ")
	b.WriteString(strings.Join(catalog, ", "))
	b.WriteString("\n\n")

	b.WriteString("Answer with a single JSON object and nothing else:\n")
	b.WriteString(`{"peso_medido_g": <number>, "tipos_detectados_vision": [<identifiers from the list>]}`)
	return b.String()
}

// ParseObservation validates a raw model answer against the output schema.
//
// # Description
//
// Accepts only a JSON object with a numeric peso_medido_g and a
// tipos_detectados_vision array of strings. Markdown code fences around the
// object are stripped, since chat models add them even when told not to.
// Any other deviation is ErrSchemaViolation; there is no partial acceptance.
func ParseObservation(raw string) (*Observation, error) {
	cleaned := stripCodeFence(raw)

	var payload struct {
		WeightGrams *float64          `json:"peso_medido_g"`
		Labels      []json.RawMessage `json:"tipos_detectados_vision"`
	}
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if payload.WeightGrams == nil {
		return nil, fmt.Errorf("%w: peso_medido_g missing or not a number", ErrSchemaViolation)
	}

	labels := make([]string, 0, len(payload.Labels))
	for _, rawLabel := range payload.Labels {
		var label string
		if err := json.Unmarshal(rawLabel, &label); err != nil {
			return nil, fmt.Errorf("%w: tipos_detectados_vision entry is not a string", ErrSchemaViolation)
		}
		labels = append(labels, label)
	}

	return &Observation{
		WeightGrams: *payload.WeightGrams,
		Labels:      labels,
	}, nil
}

// stripCodeFence removes a surrounding markdown fence like ```json ... ```.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
