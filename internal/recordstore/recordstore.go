// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recordstore materializes the DOI to record mapping from the
// tracker CSV file and serializes it back out.
// Implements: prd001-tracker (R3, R4); docs/ARCHITECTURE § Record Store.
//
// The store performs no locking of its own: it runs single-threaded
// under the owning tracker's lock.
package recordstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdiddy/doi-tracker/pkg/types"
)

// columns is the stable on-disk column order. Existing names and value
// vocabularies must not change; consumers parse this file directly.
var columns = []string{
	"doi",
	"scihub_available",
	"downloaded",
	"pymupdf_status",
	"grobid_status",
}

// ErrCorrupt marks a tracker file that exists but cannot be parsed.
// Callers must distinguish this from fs.ErrNotExist: a missing file can
// be a legitimate first run, a corrupt one should halt, not be
// overwritten.
var ErrCorrupt = errors.New("tracker file corrupt")

// Store holds the in-memory DOI to record mapping for one tracker file.
type Store struct {
	path    string
	records map[string]types.TrackerRecord

	// duplicates counts file rows collapsed by last-occurrence-wins
	// during the most recent Load.
	duplicates int
}

// New returns a store bound to path. No disk access happens until Load.
func New(path string) *Store {
	return &Store{
		path:    path,
		records: make(map[string]types.TrackerRecord),
	}
}

// Path returns the tracker file path the store is bound to.
func (s *Store) Path() string {
	return s.path
}

// Load reads the tracker file into memory, replacing any prior contents.
// Duplicate DOI rows are resolved last-occurrence-wins and counted, never
// doubling the record count. A missing file is reported via fs.ErrNotExist;
// an unreadable or malformed one via ErrCorrupt.
func (s *Store) Load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("opening tracker file: %w", err)
		}
		return fmt.Errorf("%w: opening %s: %v", ErrCorrupt, s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // row width validated against the header below

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: %s has no header row", ErrCorrupt, s.path)
		}
		return fmt.Errorf("%w: reading header of %s: %v", ErrCorrupt, s.path, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	doiCol, ok := col["doi"]
	if !ok {
		return fmt.Errorf("%w: %s header lacks a doi column", ErrCorrupt, s.path)
	}

	records := make(map[string]types.TrackerRecord)
	duplicates := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", ErrCorrupt, s.path, err)
		}
		if doiCol >= len(row) || row[doiCol] == "" {
			continue
		}

		doi := row[doiCol]
		rec := types.NewTrackerRecord(doi)
		if v := field(row, col, "scihub_available"); v != "" {
			rec.SciHubAvailable = types.Availability(v)
		}
		if v := field(row, col, "downloaded"); v != "" {
			rec.Downloaded = types.Availability(v)
		}
		if v := field(row, col, "pymupdf_status"); v != "" {
			rec.PyMuPDFStatus = types.StageStatus(v)
		}
		if v := field(row, col, "grobid_status"); v != "" {
			rec.GrobidStatus = types.StageStatus(v)
		}

		if _, seen := records[doi]; seen {
			duplicates++
		}
		records[doi] = rec
	}

	s.records = records
	s.duplicates = duplicates
	return nil
}

// field returns the named column of row, or "" when the row is short or
// the column absent.
func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Save writes every record back out in stable column order, rows sorted
// by DOI. The write is atomic with respect to partial failure: content
// goes to a temporary file in the same directory which then replaces the
// target, so a crash mid-write never leaves a truncated tracker file.
func (s *Store) Save() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tracker-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	err = writeRecords(tmp, s.records)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing tracker file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing tracker file: %w", err)
	}
	return nil
}

func writeRecords(f *os.File, records map[string]types.TrackerRecord) error {
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}

	dois := make([]string, 0, len(records))
	for doi := range records {
		dois = append(dois, doi)
	}
	sort.Strings(dois)

	for _, doi := range dois {
		rec := records[doi]
		row := []string{
			rec.DOI,
			string(rec.SciHubAvailable),
			string(rec.Downloaded),
			string(rec.PyMuPDFStatus),
			string(rec.GrobidStatus),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Get returns the record for doi and whether it is tracked.
func (s *Store) Get(doi string) (types.TrackerRecord, bool) {
	rec, ok := s.records[doi]
	return rec, ok
}

// Set inserts or replaces the record under its DOI.
func (s *Store) Set(rec types.TrackerRecord) {
	s.records[rec.DOI] = rec
}

// Delete removes doi and reports whether it was present. Removing an
// absent key is a no-op.
func (s *Store) Delete(doi string) bool {
	if _, ok := s.records[doi]; !ok {
		return false
	}
	delete(s.records, doi)
	return true
}

// Len returns the number of tracked DOIs.
func (s *Store) Len() int {
	return len(s.records)
}

// Duplicates returns the count of rows collapsed during the last Load.
func (s *Store) Duplicates() int {
	return s.duplicates
}

// All returns a copy of the mapping, safe to use after the owning
// tracker's lock is released.
func (s *Store) All() map[string]types.TrackerRecord {
	out := make(map[string]types.TrackerRecord, len(s.records))
	for doi, rec := range s.records {
		out[doi] = rec
	}
	return out
}
