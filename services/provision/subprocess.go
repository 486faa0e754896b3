// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// SubprocessProvider runs the external capabilities as child processes:
// the lookup executable gets the flight number as its argument, the
// validation executable gets the flight number plus the scanned data as a
// JSON argument, and both answer with JSON on stdout. A non-zero exit
// propagates as an error carrying the process's stderr.
type SubprocessProvider struct {
	// Interpreter runs the scripts, python3 by default.
	Interpreter    string
	LookupScript   string
	ValidateScript string
}

// NewSubprocessProvider creates a provider for the two script paths.
func NewSubprocessProvider(lookupScript, validateScript string) *SubprocessProvider {
	return &SubprocessProvider{
		Interpreter:    "python3",
		LookupScript:   lookupScript,
		ValidateScript: validateScript,
	}
}

// FlightInventory implements Provider.
func (p *SubprocessProvider) FlightInventory(ctx context.Context, flightNumber string) (*WireFlightInventory, error) {
	stdout, err := p.run(ctx, p.LookupScript, flightNumber)
	if err != nil {
		return nil, fmt.Errorf("flight lookup: %w", err)
	}

	var wire WireFlightInventory
	if err := json.Unmarshal(stdout, &wire); err != nil {
		return nil, fmt.Errorf("flight lookup: malformed response: %w", err)
	}
	if wire.Error != "" {
		return nil, fmt.Errorf("flight lookup: %s", wire.Error)
	}
	return &wire, nil
}

// Validate implements Provider.
func (p *SubprocessProvider) Validate(ctx context.Context, flightNumber string, scans []WireCartScan) (*WireValidationReport, error) {
	scannedData, err := json.Marshal(scans)
	if err != nil {
		return nil, fmt.Errorf("validation: marshaling scanned data: %w", err)
	}

	stdout, err := p.run(ctx, p.ValidateScript, flightNumber, string(scannedData))
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}

	var report WireValidationReport
	if err := json.Unmarshal(stdout, &report); err != nil {
		return nil, fmt.Errorf("validation: malformed response: %w", err)
	}
	if report.Error != "" {
		return nil, fmt.Errorf("validation: %s", report.Error)
	}
	return &report, nil
}

func (p *SubprocessProvider) run(ctx context.Context, script string, args ...string) ([]byte, error) {
	interpreter := p.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}

	cmd := exec.CommandContext(ctx, interpreter, append([]string{script}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running provision script", "script", script)
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", script, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", script, err)
	}
	return stdout.Bytes(), nil
}
