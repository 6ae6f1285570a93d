// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tracker is the public entry point to the DOI processing
// tracker. Implements: prd001-tracker (R1-R6);
//
//	docs/ARCHITECTURE § Tracker.
//
// A Tracker wraps a recordstore behind one coarse mutex and controls
// when in-memory changes become durable. Pipeline stages, reporting and
// maintenance tooling all share a single Tracker instance; the tracker
// file on disk is exclusively owned by that instance for the duration
// of a run, enforced by a sidecar flock.
package tracker

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/gofrs/flock"

	"github.com/pdiddy/doi-tracker/internal/recordstore"
	"github.com/pdiddy/doi-tracker/pkg/types"
)

var (
	// ErrSaveFailed marks a persistence failure. The in-memory state is
	// still valid and the previously persisted file intact; retrying
	// Flush alone is sufficient to recover.
	ErrSaveFailed = errors.New("tracker save failed")

	// ErrLocked means another process holds the tracker file.
	ErrLocked = errors.New("tracker file locked by another process")
)

// Tracker guards a record store behind a single coarse-grained lock.
// Every public operation holds the lock for its full duration, disk I/O
// included, so a concurrent reader can never observe a half-applied
// batch or a half-initialized cache.
type Tracker struct {
	mu    sync.Mutex
	store *recordstore.Store
	flk   *flock.Flock
	cfg   types.TrackerConfig

	loaded bool
	dirty  bool
}

// New returns a tracker for cfg.File. No disk access happens until the
// first operation.
func New(cfg types.TrackerConfig) *Tracker {
	t := &Tracker{
		store: recordstore.New(cfg.File),
		cfg:   cfg,
	}
	if !cfg.DisableLock {
		t.flk = flock.New(cfg.File + ".lock")
	}
	return t
}

// EnsureLoaded loads the tracker file into memory on first call and is a
// no-op afterwards. Safe to call from multiple goroutines. A missing
// file is an error unless cfg.CreateMissing is set, in which case the
// tracker starts empty and dirty so the first flush materializes it.
func (t *Tracker) EnsureLoaded() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ensureLoadedLocked()
}

func (t *Tracker) ensureLoadedLocked() error {
	if t.loaded {
		return nil
	}

	if t.flk != nil {
		got, err := t.flk.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring tracker lock: %w", err)
		}
		if !got {
			return fmt.Errorf("%w: %s", ErrLocked, t.flk.Path())
		}
	}

	if err := t.store.Load(); err != nil {
		if isNotExist(err) && t.cfg.CreateMissing {
			t.loaded = true
			t.dirty = true
			return nil
		}
		t.releaseLock()
		return err
	}

	t.loaded = true
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Close flushes pending changes and releases the file lock. The tracker
// must not be used afterwards.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.loaded && t.dirty {
		err = t.saveLocked()
	}
	t.releaseLock()
	return err
}

func (t *Tracker) releaseLock() {
	if t.flk != nil {
		_ = t.flk.Unlock()
	}
}

// Get returns the current record for doi, or ok == false when the DOI is
// not tracked. Triggers the lazy load on first use.
func (t *Tracker) Get(doi string) (types.TrackerRecord, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureLoadedLocked(); err != nil {
		return types.TrackerRecord{}, false, err
	}
	rec, ok := t.store.Get(doi)
	return rec, ok, nil
}

// All returns a snapshot copy of the full record set.
func (t *Tracker) All() (map[string]types.TrackerRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	return t.store.All(), nil
}

// Len returns the number of tracked DOIs.
func (t *Tracker) Len() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureLoadedLocked(); err != nil {
		return 0, err
	}
	return t.store.Len(), nil
}

// DuplicatesCollapsed returns the number of duplicate file rows resolved
// last-occurrence-wins during load, for diagnostic tooling.
func (t *Tracker) DuplicatesCollapsed() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureLoadedLocked(); err != nil {
		return 0, err
	}
	return t.store.Duplicates(), nil
}

// BulkResult summarizes one bulk update.
type BulkResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Total returns the number of updates processed.
func (r BulkResult) Total() int {
	return r.Inserted + r.Updated + r.Skipped
}

// BulkUpdate merges updates into the record set in the order supplied:
// insert when the DOI is new, field-wise overwrite when it exists. Later
// entries for the same DOI override earlier ones within the batch.
// Updates without a DOI are skipped, not errors.
//
// The whole batch is applied under one lock acquisition. With deferWrite
// false the full batch is persisted with a single save before returning;
// with deferWrite true the store is only marked dirty and durability is
// postponed until Flush. A failed save leaves the in-memory merge intact
// and the batch still pending, so a Flush retry recovers without
// re-submitting.
func (t *Tracker) BulkUpdate(updates []types.RecordUpdate, deferWrite bool) (BulkResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var res BulkResult
	if err := t.ensureLoadedLocked(); err != nil {
		return res, err
	}

	for _, u := range updates {
		if u.DOI == "" {
			res.Skipped++
			continue
		}
		rec, ok := t.store.Get(u.DOI)
		if !ok {
			rec = types.NewTrackerRecord(u.DOI)
			res.Inserted++
		} else {
			res.Updated++
		}
		u.ApplyTo(&rec)
		t.store.Set(rec)
	}

	if res.Inserted == 0 && res.Updated == 0 {
		return res, nil
	}

	t.dirty = true
	if deferWrite {
		return res, nil
	}
	return res, t.saveLocked()
}

// Remove deletes the given DOIs from the tracker. Absent keys are
// no-ops; the count of records actually removed is returned. Deletion is
// a maintenance action, never part of normal pipeline operation.
func (t *Tracker) Remove(dois []string, deferWrite bool) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureLoadedLocked(); err != nil {
		return 0, err
	}

	removed := 0
	for _, doi := range dois {
		if t.store.Delete(doi) {
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}

	t.dirty = true
	if deferWrite {
		return removed, nil
	}
	return removed, t.saveLocked()
}

// Flush forces a save when changes are pending and is a no-op otherwise.
// It is the durability boundary: everything merged since the last
// successful save is at risk until Flush returns nil. Safe to call
// repeatedly; safe to retry after a persistence failure.
func (t *Tracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.loaded || !t.dirty {
		return nil
	}
	return t.saveLocked()
}

// saveLocked persists the store. The dirty flag is cleared only on
// success: after a failure the pending state survives for retry.
func (t *Tracker) saveLocked() error {
	if err := t.store.Save(); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	t.dirty = false
	return nil
}
