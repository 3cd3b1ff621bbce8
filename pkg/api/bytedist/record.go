package bytedist

import (
	"time"

	"github.com/ossf/byte-analysis/pkg/valuecounts"
)

// SchemaVersion identifies the byte analysis results JSON schema version.
const SchemaVersion = "1.0"

// Record is the top-level struct which is serialised to produce byte analysis
// JSON files. This struct should not change unless SchemaVersion is also incremented.
type Record struct {
	SchemaVersion string    `json:"schema_version"`
	Source        string    `json:"source"`
	Created       time.Time `json:"created"`
	Results       Results   `json:"results"`
}

// Results holds the per-file output of an analysis run.
type Results struct {
	Files []FileResult `json:"files"`
}

// CreateRecord associates a set of Results with the name of the analysed
// source (a local path, archive or bucket key) to produce a Record object
// that can be serialised.
func CreateRecord(r *Results, source string) *Record {
	return &Record{
		SchemaVersion: SchemaVersion,
		Source:        source,
		Created:       time.Now().UTC(),
		Results:       *r,
	}
}

// Distribution holds the byte distribution statistics of a file.
// Field order matches the analyzer result: entropy, then standard deviation.
type Distribution struct {
	Entropy float64 `json:"entropy"`
	StdDev  float64 `json:"std_dev"`
}

// Verdict records whether a file passed the content acceptance criteria.
type Verdict struct {
	Accepted   bool     `json:"accepted"`
	Violations []string `json:"violations,omitempty"`
}

// FileResult holds analysis data for a single file. Filename is the only
// mandatory field, and holds the path to the file relative to the analysed
// root (or the member name inside an archive). Other fields may be missing
// depending on which tasks were run.
type FileResult struct {
	Filename     string                   `json:"filename"`
	DetectedType string                   `json:"detected_type,omitempty"`
	Size         int64                    `json:"size,omitempty"`
	SHA256       string                   `json:"sha256,omitempty"`
	Truncated    bool                     `json:"truncated,omitempty"`
	Distribution *Distribution            `json:"distribution,omitempty"`
	ByteCounts   *valuecounts.ValueCounts `json:"byte_counts,omitempty"`
	Verdict      *Verdict                 `json:"verdict,omitempty"`
}

// Summary counts accepted and rejected files among results that carry a verdict.
func (r Results) Summary() (accepted, rejected int) {
	for _, f := range r.Files {
		if f.Verdict == nil {
			continue
		}
		if f.Verdict.Accepted {
			accepted++
		} else {
			rejected++
		}
	}
	return accepted, rejected
}
