// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Transition guard failures. Handlers map these to 4xx responses; every
// other error from a workflow method is an external-call failure.
var (
	ErrInvalidTransition = errors.New("event not valid in current state")
	ErrEmptyFlightNumber = errors.New("flight number is empty")
	ErrUnknownCart       = errors.New("cart not found on this flight")
	ErrCartCompleted     = errors.New("cart already completed")
	ErrNoPendingImage    = errors.New("no captured photo to process")
	ErrEmptyScanBuffer   = errors.New("scan buffer is empty")
	ErrNoResultDisplayed = errors.New("no validation result is displayed")
	ErrDisplayDelay      = errors.New("validation result display delay has not elapsed")
)

// Workflow is one operator's flight-validation session.
//
// # Description
//
// A synchronous state machine over four states: flight input, cart
// selection, scanning, complete. Events are methods; each checks the
// current state and its guard before doing anything, and a failed external
// call never advances state.
//
// Validation results stay visible for a display delay (shorter on success)
// before FinishResultDisplay clears them; the delay is measured against the
// injected Clock.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The machine still processes one
// event at a time; concurrent events serialize on an internal mutex.
type Workflow struct {
	lookup     FlightLookup
	vision     VisionAnalyzer
	validator  ScanValidator
	reconciler Reconciler
	clock      Clock
	params     Params

	mu           sync.Mutex
	state        State
	flight       *FlightInventory
	activeCartID string
	completed    map[string]bool
	scanBuffer   []ScannedBox
	pendingImage []byte
	lastResult   *ValidationResult
	displayUntil time.Time
	failureHeld  bool
}

// NewWorkflow creates a workflow in StateFlightInput.
//
// A nil reconciler defaults to FuzzyReconciler; a nil clock defaults to
// SystemClock.
func NewWorkflow(lookup FlightLookup, vision VisionAnalyzer, validator ScanValidator, reconciler Reconciler, clock Clock, params Params) *Workflow {
	if reconciler == nil {
		reconciler = FuzzyReconciler{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Workflow{
		lookup:     lookup,
		vision:     vision,
		validator:  validator,
		reconciler: reconciler,
		clock:      clock,
		params:     params,
		state:      StateFlightInput,
		completed:  map[string]bool{},
	}
}

// SubmitFlight looks up the flight and moves to cart selection.
//
// Guard: state is StateFlightInput and the flight number is non-empty. On
// lookup failure the state stays put and the error is returned.
func (w *Workflow) SubmitFlight(ctx context.Context, flightNumber string) error {
	flightNumber = strings.ToUpper(strings.TrimSpace(flightNumber))
	if flightNumber == "" {
		return ErrEmptyFlightNumber
	}

	w.mu.Lock()
	if w.state != StateFlightInput {
		w.mu.Unlock()
		return fmt.Errorf("%w: submit flight in state %s", ErrInvalidTransition, w.state)
	}
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, w.params.LookupTimeout)
	defer cancel()

	flight, err := w.lookup.LookupFlight(ctx, flightNumber)
	if err != nil {
		return fmt.Errorf("looking up flight %s: %w", flightNumber, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateFlightInput {
		return fmt.Errorf("%w: submit flight in state %s", ErrInvalidTransition, w.state)
	}
	w.flight = flight
	w.state = StateCartSelection
	return nil
}

// SelectCart makes the cart active and moves to scanning.
//
// Guard: state is StateCartSelection, the cart exists, and it is not yet
// completed. The scan buffer is cleared for the new cart.
func (w *Workflow) SelectCart(cartID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateCartSelection {
		return fmt.Errorf("%w: select cart in state %s", ErrInvalidTransition, w.state)
	}
	if w.flight.Cart(cartID) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCart, cartID)
	}
	if w.completed[cartID] {
		return fmt.Errorf("%w: %s", ErrCartCompleted, cartID)
	}

	w.activeCartID = cartID
	w.scanBuffer = nil
	w.pendingImage = nil
	w.lastResult = nil
	w.state = StateScanning
	return nil
}

// CapturePhoto stores a raw image pending vision processing, replacing any
// previously captured but unprocessed image.
//
// Guard: state is StateScanning.
func (w *Workflow) CapturePhoto(image []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateScanning {
		return fmt.Errorf("%w: capture photo in state %s", ErrInvalidTransition, w.state)
	}
	w.pendingImage = image
	return nil
}

// ProcessPhoto sends the pending image to the vision analyzer and appends
// the reconciled observation to the scan buffer.
//
// Guard: state is StateScanning and a pending image exists. On vision
// failure the pending image is kept so the operator can retry or recapture.
func (w *Workflow) ProcessPhoto(ctx context.Context) (*ScannedBox, error) {
	w.mu.Lock()
	if w.state != StateScanning {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: process photo in state %s", ErrInvalidTransition, w.state)
	}
	if len(w.pendingImage) == 0 {
		w.mu.Unlock()
		return nil, ErrNoPendingImage
	}
	image := w.pendingImage
	cart := w.flight.Cart(w.activeCartID)
	catalog := w.flight.Catalog
	expected := make([]string, 0, len(cart.RequiredItems))
	for _, item := range cart.RequiredItems {
		expected = append(expected, item.SKU)
	}
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, w.params.VisionTimeout)
	defer cancel()

	obs, err := w.vision.AnalyzeBox(ctx, image, expected, catalog)
	if err != nil {
		return nil, fmt.Errorf("analyzing photo: %w", err)
	}

	box := ScannedBox{
		WeightGrams:  obs.WeightGrams,
		DetectedSKUs: reconcileLabels(w.reconciler, obs.Labels, catalog),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateScanning {
		return nil, fmt.Errorf("%w: process photo in state %s", ErrInvalidTransition, w.state)
	}
	w.scanBuffer = append(w.scanBuffer, box)
	w.pendingImage = nil
	return &box, nil
}

// SubmitForValidation sends the scan buffer to the external validator and
// applies the verdict.
//
// Guard: state is StateScanning and the scan buffer is non-empty.
//
// On a passing verdict the cart joins the completed set and the machine
// moves to StateCartSelection, or StateComplete when every cart is done. On
// a failing verdict the machine stays in StateScanning and the buffer is
// kept until FinishResultDisplay clears it. Either way the result stays
// visible for its display delay.
func (w *Workflow) SubmitForValidation(ctx context.Context) (*ValidationResult, error) {
	w.mu.Lock()
	if w.state != StateScanning {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: submit for validation in state %s", ErrInvalidTransition, w.state)
	}
	if len(w.scanBuffer) == 0 {
		w.mu.Unlock()
		return nil, ErrEmptyScanBuffer
	}
	scan := CartScan{
		CartID: w.activeCartID,
		Boxes:  append([]ScannedBox(nil), w.scanBuffer...),
	}
	flightNumber := w.flight.FlightNumber
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, w.params.ValidationTimeout)
	defer cancel()

	result, err := w.validator.Validate(ctx, flightNumber, scan)
	if err != nil {
		return nil, fmt.Errorf("validating cart %s: %w", scan.CartID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateScanning {
		return nil, fmt.Errorf("%w: submit for validation in state %s", ErrInvalidTransition, w.state)
	}

	w.lastResult = result
	now := w.clock.Now()

	if result.Succeeded() {
		w.completed[w.activeCartID] = true
		w.scanBuffer = nil
		w.pendingImage = nil
		w.activeCartID = ""
		w.failureHeld = false
		w.displayUntil = now.Add(w.params.SuccessDisplayDelay)
		if len(w.completed) == len(w.flight.Carts) {
			w.state = StateComplete
		} else {
			w.state = StateCartSelection
		}
	} else {
		// Stay scanning; the buffer is cleared only after the operator has
		// seen the failure.
		w.failureHeld = true
		w.displayUntil = now.Add(w.params.FailureDisplayDelay)
	}
	return result, nil
}

// FinishResultDisplay clears the displayed validation result once its delay
// has elapsed. After a failed validation it also clears the scan buffer so
// the operator re-scans from scratch.
//
// Guard: a result is displayed and the display delay has elapsed.
func (w *Workflow) FinishResultDisplay() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.lastResult == nil {
		return ErrNoResultDisplayed
	}
	if w.clock.Now().Before(w.displayUntil) {
		return ErrDisplayDelay
	}

	w.lastResult = nil
	if w.failureHeld {
		w.scanBuffer = nil
		w.pendingImage = nil
		w.failureHeld = false
	}
	return nil
}

// BackToSelection abandons the active cart and returns to cart selection.
//
// Guard: state is StateScanning. The scan buffer and pending image are
// discarded; the cart stays uncompleted and can be selected again.
func (w *Workflow) BackToSelection() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateScanning {
		return fmt.Errorf("%w: back to selection in state %s", ErrInvalidTransition, w.state)
	}
	w.activeCartID = ""
	w.scanBuffer = nil
	w.pendingImage = nil
	w.lastResult = nil
	w.failureHeld = false
	w.state = StateCartSelection
	return nil
}

// Reset returns the workflow to StateFlightInput from any state, clearing
// the flight, the completed set, the scan buffer, and any displayed result.
// Idempotent.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state = StateFlightInput
	w.flight = nil
	w.activeCartID = ""
	w.completed = map[string]bool{}
	w.scanBuffer = nil
	w.pendingImage = nil
	w.lastResult = nil
	w.failureHeld = false
	w.displayUntil = time.Time{}
}

// Snapshot is a read-only view of the workflow for rendering.
type Snapshot struct {
	State           State             `json:"state"`
	Flight          *FlightInventory  `json:"flight,omitempty"`
	ActiveCartID    string            `json:"activeCartId,omitempty"`
	CompletedCarts  []string          `json:"completedCarts"`
	ScanBuffer      []ScannedBox      `json:"scanBuffer"`
	HasPendingImage bool              `json:"hasPendingImage"`
	LastResult      *ValidationResult `json:"lastResult,omitempty"`
}

// Snapshot returns the current view. Completed carts preserve flight order.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		State:           w.state,
		Flight:          w.flight,
		ActiveCartID:    w.activeCartID,
		CompletedCarts:  []string{},
		ScanBuffer:      append([]ScannedBox(nil), w.scanBuffer...),
		HasPendingImage: len(w.pendingImage) > 0,
		LastResult:      w.lastResult,
	}
	if w.flight != nil {
		for _, cart := range w.flight.Carts {
			if w.completed[cart.ID] {
				snap.CompletedCarts = append(snap.CompletedCarts, cart.ID)
			}
		}
	}
	return snap
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
