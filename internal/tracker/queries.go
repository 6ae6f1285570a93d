// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"sort"

	"github.com/pdiddy/doi-tracker/pkg/types"
)

// NeedingDownload returns DOIs confirmed available but not yet
// downloaded, sorted.
func (t *Tracker) NeedingDownload() ([]string, error) {
	return t.selectDOIs(func(rec types.TrackerRecord) bool {
		return rec.SciHubAvailable == types.AvailableYes &&
			rec.Downloaded != types.AvailableYes
	})
}

// NeedingPyMuPDF returns downloaded DOIs whose fast extraction pass has
// not succeeded, sorted. Failed passes are included so they can be
// retried.
func (t *Tracker) NeedingPyMuPDF() ([]string, error) {
	return t.selectDOIs(func(rec types.TrackerRecord) bool {
		return rec.Downloaded == types.AvailableYes &&
			(rec.PyMuPDFStatus == types.StatusNotAttempted ||
				rec.PyMuPDFStatus == types.StatusFailed)
	})
}

// NeedingGrobid returns downloaded DOIs whose structured extraction pass
// has not succeeded, sorted.
func (t *Tracker) NeedingGrobid() ([]string, error) {
	return t.selectDOIs(func(rec types.TrackerRecord) bool {
		return rec.Downloaded == types.AvailableYes &&
			(rec.GrobidStatus == types.StatusNotAttempted ||
				rec.GrobidStatus == types.StatusFailed)
	})
}

func (t *Tracker) selectDOIs(keep func(types.TrackerRecord) bool) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureLoadedLocked(); err != nil {
		return nil, err
	}

	var dois []string
	for doi, rec := range t.store.All() {
		if keep(rec) {
			dois = append(dois, doi)
		}
	}
	sort.Strings(dois)
	return dois, nil
}

// Stats holds per-stage counters over the full record set.
type Stats struct {
	TotalDOIs        int `json:"total_dois" yaml:"total_dois"`
	SciHubAvailable  int `json:"scihub_available" yaml:"scihub_available"`
	SciHubNotFound   int `json:"scihub_not_found" yaml:"scihub_not_found"`
	Downloaded       int `json:"downloaded" yaml:"downloaded"`
	DownloadFailed   int `json:"download_failed" yaml:"download_failed"`
	PyMuPDFSuccess   int `json:"pymupdf_success" yaml:"pymupdf_success"`
	PyMuPDFFailed    int `json:"pymupdf_failed" yaml:"pymupdf_failed"`
	PyMuPDFPending   int `json:"pymupdf_pending" yaml:"pymupdf_pending"`
	GrobidSuccess    int `json:"grobid_success" yaml:"grobid_success"`
	GrobidFailed     int `json:"grobid_failed" yaml:"grobid_failed"`
	GrobidPending    int `json:"grobid_pending" yaml:"grobid_pending"`
	FullyProcessed   int `json:"fully_processed" yaml:"fully_processed"`
	DuplicateRowsCol int `json:"duplicate_rows_collapsed" yaml:"duplicate_rows_collapsed"`
}

// CompletionRate returns the share of DOIs with at least one successful
// extraction pass, in percent.
func (s Stats) CompletionRate() float64 {
	if s.TotalDOIs == 0 {
		return 0
	}
	return float64(s.FullyProcessed) / float64(s.TotalDOIs) * 100
}

// Statistics computes counters over every tracked record.
func (t *Tracker) Statistics() (Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s Stats
	if err := t.ensureLoadedLocked(); err != nil {
		return s, err
	}

	for _, rec := range t.store.All() {
		s.TotalDOIs++

		switch rec.SciHubAvailable {
		case types.AvailableYes:
			s.SciHubAvailable++
		case types.AvailableNo:
			s.SciHubNotFound++
		}

		switch rec.Downloaded {
		case types.AvailableYes:
			s.Downloaded++
		case types.AvailableNo:
			s.DownloadFailed++
		}

		switch rec.PyMuPDFStatus {
		case types.StatusSuccess:
			s.PyMuPDFSuccess++
		case types.StatusFailed:
			s.PyMuPDFFailed++
		case types.StatusNotAttempted:
			s.PyMuPDFPending++
		}

		switch rec.GrobidStatus {
		case types.StatusSuccess:
			s.GrobidSuccess++
		case types.StatusFailed:
			s.GrobidFailed++
		case types.StatusNotAttempted:
			s.GrobidPending++
		}

		if rec.PyMuPDFStatus == types.StatusSuccess || rec.GrobidStatus == types.StatusSuccess {
			s.FullyProcessed++
		}
	}

	s.DuplicateRowsCol = t.store.Duplicates()
	return s, nil
}
