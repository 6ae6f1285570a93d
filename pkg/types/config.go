package types

// TrackerConfig holds settings for the tracker file and its ownership.
// Per prd001-tracker R5.1-R5.3.
type TrackerConfig struct {
	// File is the path to the tracker CSV file
	// (default "doi_processing_tracker.csv").
	File string `json:"file" yaml:"file"`

	// CreateMissing permits the first load to start from an empty
	// record set when the file does not exist yet. Off by default so a
	// mistyped path cannot silently fabricate an empty tracker.
	CreateMissing bool `json:"create_missing" yaml:"create_missing"`

	// DisableLock skips the sidecar flock. Only for tests and read-only
	// inspection of a file owned by another process.
	DisableLock bool `json:"disable_lock,omitempty" yaml:"disable_lock,omitempty"`
}

// DatabaseConfig holds settings for the read-only papers database.
// Per prd003-reconcile R1.1.
type DatabaseConfig struct {
	// Path is the sqlite file holding the papers relation
	// (e.g. "data/papers.db"). The tracker never writes to it.
	Path string `json:"path" yaml:"path"`
}

// OutputConfig holds settings for the extraction output directory.
// Per prd003-reconcile R2.1.
type OutputConfig struct {
	// Dir contains one JSON file per DOI per extractor; "/" in the DOI
	// is transliterated to "_" and the PyMuPDF pass carries a "_fast"
	// suffix.
	Dir string `json:"dir" yaml:"dir"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Tracker  TrackerConfig  `json:"tracker" yaml:"tracker"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Output   OutputConfig   `json:"output" yaml:"output"`
}
