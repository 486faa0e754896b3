// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package inventory

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("workflow session not found")

type session struct {
	workflow   *Workflow
	lastActive time.Time
}

// Registry holds the live workflow sessions for the HTTP gateway.
//
// # Description
//
// Each operator driving the validation flow gets one Workflow keyed by a
// generated session ID. Sessions idle past the TTL are reaped by a
// background sweep so abandoned browser tabs do not accumulate state.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Registry struct {
	newWorkflow func() *Workflow
	idleTTL     time.Duration
	clock       Clock
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	running  bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewRegistry creates a registry. newWorkflow builds a fresh Workflow per
// session; a non-positive idleTTL falls back to 30 minutes.
func NewRegistry(newWorkflow func() *Workflow, idleTTL time.Duration, clock Clock, logger *slog.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		newWorkflow: newWorkflow,
		idleTTL:     idleTTL,
		clock:       clock,
		logger:      logger,
		sessions:    map[string]*session{},
	}
}

// Create starts a new workflow session and returns its ID.
func (r *Registry) Create() string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{
		workflow:   r.newWorkflow(),
		lastActive: r.clock.Now(),
	}
	return id
}

// Get returns the workflow for a session and refreshes its idle timer.
func (r *Registry) Get(sessionID string) (*Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastActive = r.clock.Now()
	return s.workflow, nil
}

// Delete removes a session. Unknown IDs are a no-op.
func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Start launches the idle-session sweep. Sweeps run at half the idle TTL.
// Calling Start on a running registry is a no-op.
func (r *Registry) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.done = make(chan struct{})
	r.mu.Unlock()

	r.wg.Add(1)
	go r.sweepLoop()
}

// Stop halts the sweep loop. Calling Stop on a stopped registry is a no-op.
func (r *Registry) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Registry) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("reaped idle workflow sessions", "count", n)
			}
		case <-r.done:
			return
		}
	}
}

// Sweep removes sessions idle past the TTL and returns how many were
// removed. Exposed for deterministic tests.
func (r *Registry) Sweep() int {
	cutoff := r.clock.Now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.lastActive.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
