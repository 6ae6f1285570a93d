// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package statuscodec decodes legacy combined parsing-status strings into
// structured tracker fields. Implements: prd002-status-codec (R1-R4);
//
//	docs/ARCHITECTURE § Status Codec.
//
// The papers database carries a free-form parsing_status column written
// by retired tooling ("success (parser: grobid)", "download_failed",
// "not required - already populated", ...). Decode translates one such
// string into the subset of tracker fields it actually conveys. It is a
// total function: any input yields a Result, never an error.
package statuscodec

import (
	"strings"

	"github.com/pdiddy/doi-tracker/pkg/types"
)

// ResultKind tags the outcome of a decode.
type ResultKind int

const (
	// KindFields means at least one tracker field was extracted.
	KindFields ResultKind = iota

	// KindNoSignal means the string is empty or matches a recognized
	// phrase that carries no per-stage information. The caller applies
	// explicit unknown/not_attempted defaults.
	KindNoSignal

	// KindUnrecognized means the string matched no known pattern. The
	// caller applies defaults and should surface the string for manual
	// review rather than guessing stage outcomes.
	KindUnrecognized
)

// Result is the tagged outcome of decoding one legacy status string.
type Result struct {
	Kind ResultKind

	// Fields holds the extracted partial record when Kind == KindFields.
	// The DOI is left empty; callers fill it in.
	Fields types.RecordUpdate
}

// noSignalPhrases are recognized legacy phrases that say nothing about
// individual pipeline stages. They decode to the no-data sentinel so the
// caller falls back to explicit defaults; absence of stage evidence is
// never promoted to success.
var noSignalPhrases = []string{
	"already populated",
	"not required",
	"not processed",
	"not_processed",
	"no doi",
	"unknown",
}

// Decode translates a legacy combined status string into tracker fields.
// It is deterministic, side-effect-free, and never fails: unparseable
// input yields KindUnrecognized, empty or whitespace-only input yields
// KindNoSignal. Unknown tokens inside an otherwise recognized string do
// not abort the decode; recognized sub-fields are still extracted.
func Decode(s string) Result {
	ps := strings.ToLower(strings.TrimSpace(s))
	if ps == "" {
		return Result{Kind: KindNoSignal}
	}

	var u types.RecordUpdate

	// Download/availability evidence. A named parser implies the PDF
	// existed, so "processing_failed (parser: grobid)" still means the
	// download itself succeeded.
	switch {
	case strings.Contains(ps, "success"), strings.Contains(ps, "parser"):
		u.Downloaded = types.AvailableYes
		u.SciHubAvailable = types.AvailableYes
	case strings.Contains(ps, "not_found"):
		u.SciHubAvailable = types.AvailableNo
		u.Downloaded = types.AvailableNo
	case strings.Contains(ps, "download_failed"), strings.Contains(ps, "failed"):
		u.Downloaded = types.AvailableNo
	}

	// Per-extractor outcomes.
	if strings.Contains(ps, "pymupdf") {
		u.PyMuPDFStatus = stageOutcome(ps)
	}
	if strings.Contains(ps, "grobid") {
		u.GrobidStatus = stageOutcome(ps)
	}

	if !u.IsEmpty() {
		return Result{Kind: KindFields, Fields: u}
	}

	for _, phrase := range noSignalPhrases {
		if strings.Contains(ps, phrase) {
			return Result{Kind: KindNoSignal}
		}
	}
	return Result{Kind: KindUnrecognized}
}

// stageOutcome maps the success/failed tokens of an already-lowercased
// status string to a stage status.
func stageOutcome(ps string) types.StageStatus {
	switch {
	case strings.Contains(ps, "success"):
		return types.StatusSuccess
	case strings.Contains(ps, "failed"):
		return types.StatusFailed
	default:
		return types.StatusNotAttempted
	}
}

// Encode renders a record back into the combined status vocabulary for
// status reports. GROBID output is preferred when both extractors
// succeeded, mirroring how the legacy strings were written.
func Encode(rec types.TrackerRecord) string {
	switch {
	case rec.GrobidStatus == types.StatusSuccess:
		return "success (parser: grobid)"
	case rec.PyMuPDFStatus == types.StatusSuccess:
		return "success (parser: PyMuPDF)"
	case rec.GrobidStatus == types.StatusFailed:
		return "processing_failed (parser: grobid)"
	case rec.PyMuPDFStatus == types.StatusFailed:
		return "processing_failed (parser: PyMuPDF)"
	case rec.Downloaded == types.AvailableNo:
		return "download_failed"
	case rec.SciHubAvailable == types.AvailableNo:
		return "not_found"
	default:
		return "not_processed"
	}
}
