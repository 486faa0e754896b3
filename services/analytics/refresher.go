// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher periodically refreshes the cached dashboard snapshot so the
// supervisor view never waits on the warehouse.
//
// # Description
//
// A ticker drives the refresh. If a fetch is still in flight when the next
// tick arrives, that tick is skipped; refreshes never overlap, and a slow
// warehouse cannot queue an unbounded backlog of fetches.
//
// # Thread Safety
//
// Start, Stop, and Snapshot are safe for concurrent use.
type Refresher struct {
	metrics  *MetricsService
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	fetching bool
	done     chan struct{}
	wg       sync.WaitGroup

	snapMu   sync.RWMutex
	snapshot *Dashboard
}

// NewRefresher creates a refresher over the given metrics service.
// A non-positive interval falls back to 30 seconds.
func NewRefresher(metrics *MetricsService, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		metrics:  metrics,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background refresh loop. Calling Start on a running
// refresher is a no-op. An immediate refresh is performed before the first
// tick so Snapshot has data as soon as possible.
func (r *Refresher) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.done = make(chan struct{})
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run()

	r.logger.Info("dashboard refresher started", "interval", r.interval)
}

// Stop halts the refresh loop and waits for an in-flight refresh to finish.
// Calling Stop on a stopped refresher is a no-op.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("dashboard refresher stopped")
}

// Snapshot returns the most recent dashboard snapshot, or nil before the
// first refresh completes.
func (r *Refresher) Snapshot() *Dashboard {
	r.snapMu.RLock()
	defer r.snapMu.RUnlock()
	return r.snapshot
}

func (r *Refresher) run() {
	defer r.wg.Done()

	r.spawnRefresh()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.spawnRefresh()
		case <-r.done:
			return
		}
	}
}

// spawnRefresh runs a refresh off the ticker goroutine so a slow fetch does
// not delay tick delivery; the in-flight guard makes overlapping ticks skip.
func (r *Refresher) spawnRefresh() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.refresh()
	}()
}

// refresh fetches a new snapshot unless one is already being fetched.
func (r *Refresher) refresh() {
	r.mu.Lock()
	if r.fetching {
		r.mu.Unlock()
		r.logger.Warn("dashboard refresh still in flight, skipping tick")
		return
	}
	r.fetching = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.fetching = false
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	snap := r.metrics.DashboardData(ctx)

	r.snapMu.Lock()
	r.snapshot = &snap
	r.snapMu.Unlock()
}
