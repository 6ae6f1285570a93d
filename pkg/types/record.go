// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Availability is the tri-state outcome of a yes/no pipeline check
// (Sci-Hub availability, download). Per prd001-tracker R2.2.
type Availability string

const (
	AvailableYes     Availability = "yes"
	AvailableNo      Availability = "no"
	AvailableUnknown Availability = "unknown"
)

// StageStatus is the outcome of a text-extraction pass.
// Per prd001-tracker R2.3.
type StageStatus string

const (
	StatusNotAttempted StageStatus = "not_attempted"
	StatusSuccess      StageStatus = "success"
	StatusFailed       StageStatus = "failed"
	StatusInProgress   StageStatus = "in_progress"
)

// TrackerRecord is one row of the processing tracker: the per-DOI tuple
// of pipeline-stage outcomes. The DOI is the unique, case-sensitive key
// identifying the document across every subsystem.
type TrackerRecord struct {
	// DOI is the Digital Object Identifier, e.g. "10.1126/science.1058040".
	DOI string `json:"doi" yaml:"doi"`

	// SciHubAvailable records whether the document was confirmed
	// retrievable from the acquisition service.
	SciHubAvailable Availability `json:"scihub_available" yaml:"scihub_available"`

	// Downloaded records whether the raw PDF was retrieved.
	Downloaded Availability `json:"downloaded" yaml:"downloaded"`

	// PyMuPDFStatus is the outcome of the fast text-extraction pass.
	PyMuPDFStatus StageStatus `json:"pymupdf_status" yaml:"pymupdf_status"`

	// GrobidStatus is the outcome of the structured text-extraction pass.
	GrobidStatus StageStatus `json:"grobid_status" yaml:"grobid_status"`
}

// NewTrackerRecord returns a record for doi with every stage at its
// conservative default. Absence of evidence is never encoded as success
// (prd001-tracker R2.5).
func NewTrackerRecord(doi string) TrackerRecord {
	return TrackerRecord{
		DOI:             doi,
		SciHubAvailable: AvailableUnknown,
		Downloaded:      AvailableUnknown,
		PyMuPDFStatus:   StatusNotAttempted,
		GrobidStatus:    StatusNotAttempted,
	}
}

// RecordUpdate is a partial TrackerRecord: only non-empty fields are
// applied on merge, the rest of the target record is left unchanged.
type RecordUpdate struct {
	DOI             string       `json:"doi" yaml:"doi"`
	SciHubAvailable Availability `json:"scihub_available,omitempty" yaml:"scihub_available,omitempty"`
	Downloaded      Availability `json:"downloaded,omitempty" yaml:"downloaded,omitempty"`
	PyMuPDFStatus   StageStatus  `json:"pymupdf_status,omitempty" yaml:"pymupdf_status,omitempty"`
	GrobidStatus    StageStatus  `json:"grobid_status,omitempty" yaml:"grobid_status,omitempty"`
}

// IsEmpty reports whether the update carries no fields beyond the DOI.
func (u RecordUpdate) IsEmpty() bool {
	return u.SciHubAvailable == "" && u.Downloaded == "" &&
		u.PyMuPDFStatus == "" && u.GrobidStatus == ""
}

// ApplyTo merges the update's set fields into rec, field-wise.
// Untouched fields keep their previous values (prd001-tracker R2.4).
func (u RecordUpdate) ApplyTo(rec *TrackerRecord) {
	if u.SciHubAvailable != "" {
		rec.SciHubAvailable = u.SciHubAvailable
	}
	if u.Downloaded != "" {
		rec.Downloaded = u.Downloaded
	}
	if u.PyMuPDFStatus != "" {
		rec.PyMuPDFStatus = u.PyMuPDFStatus
	}
	if u.GrobidStatus != "" {
		rec.GrobidStatus = u.GrobidStatus
	}
}
