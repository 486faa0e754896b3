// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// subprocess calls. Using these validators keeps command injection and shell
// metacharacters out of the external script invocations.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// flightPattern matches valid flight numbers.
// Allows: uppercase letters, digits, hyphens (charter designators like AM-241)
// Max length: 10 characters (covers IATA and ICAO designators)
var flightPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-]{1,9}$`)

// ValidateFlightNumber validates a flight number before it is handed to the
// external inventory scripts.
//
// Valid flight numbers:
//   - 2-10 characters
//   - Uppercase letters A-Z
//   - Digits 0-9
//   - Hyphens (-) for charter designators
//
// Returns an error if the flight number is invalid.
//
// Example:
//
//	if err := validation.ValidateFlightNumber(flight); err != nil {
//	    return nil, fmt.Errorf("invalid flight number: %w", err)
//	}
//	// Safe to pass as a script argument
func ValidateFlightNumber(flight string) error {
	if flight == "" {
		return fmt.Errorf("flight number cannot be empty")
	}

	if !flightPattern.MatchString(flight) {
		return fmt.Errorf("invalid flight number format: %q (must be 2-10 uppercase alphanumeric chars or hyphens)", flight)
	}

	return nil
}

// SanitizeFlightNumber normalizes and validates a flight number.
// Returns the uppercase flight number if valid, or an error if invalid.
//
// Use this when you need both validation and normalization:
//
//	safeFlight, err := validation.SanitizeFlightNumber(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeFlight is uppercase and validated
func SanitizeFlightNumber(flight string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(flight))
	if err := ValidateFlightNumber(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
