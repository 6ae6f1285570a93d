// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile syncs the tracker with the extraction output
// directory and reports tracker-versus-database divergence.
// Implements: prd003-reconcile (R2-R4); docs/ARCHITECTURE § Reconcile.
//
// Extraction output files are the ground truth for completed work: one
// JSON file per DOI per extractor, named by transliterating "/" in the
// DOI to "_". The PyMuPDF pass carries a "_fast" suffix; everything else
// is GROBID output.
package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/doi-tracker/pkg/types"
)

// Extractor identifies which extraction pass produced an output file.
type Extractor string

const (
	ExtractorGrobid  Extractor = "grobid"
	ExtractorPyMuPDF Extractor = "pymupdf"
)

const fastSuffix = "_fast"

// DOIToFilename returns the output file name for a DOI and extractor.
func DOIToFilename(doi string, ex Extractor) string {
	name := strings.ReplaceAll(doi, "/", "_")
	if ex == ExtractorPyMuPDF {
		name += fastSuffix
	}
	return name + ".json"
}

// FilenameToDOI inverts the transliteration. The mapping is lossy for
// DOIs that contain literal underscores; those resolve to the
// slash-joined form, matching how the files were originally written.
func FilenameToDOI(name string) (string, Extractor) {
	base := strings.TrimSuffix(name, ".json")
	ex := ExtractorGrobid
	if strings.HasSuffix(base, fastSuffix) {
		base = strings.TrimSuffix(base, fastSuffix)
		ex = ExtractorPyMuPDF
	}
	return strings.ReplaceAll(base, "_", "/"), ex
}

// ExtractorSet records which passes have produced output for one DOI.
type ExtractorSet struct {
	Grobid  bool
	PyMuPDF bool
}

// ScanStats summarizes one output-directory scan.
type ScanStats struct {
	Files      int
	GrobidOut  int
	PyMuPDFOut int
	UniqueDOIs int
}

// ScanOutputDir walks dir for extraction JSON files and groups them by
// DOI. A missing directory yields an empty result, not an error: no
// output yet is a legitimate pipeline state.
func ScanOutputDir(dir string) (map[string]ExtractorSet, ScanStats, error) {
	var stats ScanStats
	found := make(map[string]ExtractorSet)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return found, stats, nil
		}
		return nil, stats, fmt.Errorf("reading output directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		stats.Files++

		doi, ex := FilenameToDOI(entry.Name())
		set := found[doi]
		switch ex {
		case ExtractorGrobid:
			set.Grobid = true
			stats.GrobidOut++
		case ExtractorPyMuPDF:
			set.PyMuPDF = true
			stats.PyMuPDFOut++
		}
		found[doi] = set
	}

	stats.UniqueDOIs = len(found)
	return found, stats, nil
}

// BuildUpdates turns scan results into tracker updates. An output file
// is evidence the PDF existed and that extractor succeeded; only fields
// that actually differ from the current record are emitted, so applying
// the result is idempotent.
func BuildUpdates(found map[string]ExtractorSet, current map[string]types.TrackerRecord) []types.RecordUpdate {
	dois := make([]string, 0, len(found))
	for doi := range found {
		dois = append(dois, doi)
	}
	sort.Strings(dois)

	var updates []types.RecordUpdate
	for _, doi := range dois {
		set := found[doi]
		rec, tracked := current[doi]

		var u types.RecordUpdate
		if !tracked || rec.Downloaded != types.AvailableYes {
			u.Downloaded = types.AvailableYes
		}
		if !tracked || rec.SciHubAvailable != types.AvailableYes {
			u.SciHubAvailable = types.AvailableYes
		}
		if set.Grobid && (!tracked || rec.GrobidStatus != types.StatusSuccess) {
			u.GrobidStatus = types.StatusSuccess
		}
		if set.PyMuPDF && (!tracked || rec.PyMuPDFStatus != types.StatusSuccess) {
			u.PyMuPDFStatus = types.StatusSuccess
		}

		if !u.IsEmpty() {
			u.DOI = doi
			updates = append(updates, u)
		}
	}
	return updates
}

// Divergence is the set difference between the database's DOIs and the
// tracker's. Both sides should converge to empty after a sync.
type Divergence struct {
	// MissingFromTracker are database DOIs the tracker does not hold.
	MissingFromTracker []string

	// MissingFromDB are tracked DOIs absent from the database. These
	// usually indicate rows deleted from the database after tracking
	// began and are candidates for maintenance removal.
	MissingFromDB []string
}

// InSync reports whether the two sides hold the same DOI set.
func (d Divergence) InSync() bool {
	return len(d.MissingFromTracker) == 0 && len(d.MissingFromDB) == 0
}

// Diff computes the divergence between the tracker's records and the
// database's DOI set. Both result slices are sorted.
func Diff(tracked map[string]types.TrackerRecord, dbSet map[string]struct{}) Divergence {
	var d Divergence
	for doi := range dbSet {
		if _, ok := tracked[doi]; !ok {
			d.MissingFromTracker = append(d.MissingFromTracker, doi)
		}
	}
	for doi := range tracked {
		if _, ok := dbSet[doi]; !ok {
			d.MissingFromDB = append(d.MissingFromDB, doi)
		}
	}
	sort.Strings(d.MissingFromTracker)
	sort.Strings(d.MissingFromDB)
	return d
}
