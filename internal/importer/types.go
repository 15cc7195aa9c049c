// Package importer implements the bulk client import pipeline: file parsing,
// row validation, duplicate detection, and the two-phase preview/commit flow.
package importer

// RawRow is one data row extracted from an uploaded file. Fields maps
// canonical field names (name, phone, source, status) to raw cell values.
// Number is the 1-based position in the source file; the header occupies
// row 1, so data rows start at 2.
type RawRow struct {
	Number int               `json:"row"`
	Fields map[string]string `json:"fields"`
}

// Candidate is a validated, normalized client row ready for persistence.
// It exists only for rows that passed every field rule.
type Candidate struct {
	Row    int    `json:"row"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Source string `json:"source,omitempty"`
	Status string `json:"status"`
}

// OutcomeKind classifies one input row. The kinds are mutually exclusive.
type OutcomeKind string

const (
	OutcomeValid             OutcomeKind = "valid"
	OutcomeDuplicateExisting OutcomeKind = "duplicate_existing"
	OutcomeDuplicateInBatch  OutcomeKind = "duplicate_in_batch"
	OutcomeInvalid           OutcomeKind = "invalid"
)

// RowOutcome tags one RawRow with exactly one classification. Candidate is
// set for every kind except invalid; Errors is set only for invalid.
type RowOutcome struct {
	Row       int         `json:"row"`
	Kind      OutcomeKind `json:"kind"`
	Candidate *Candidate  `json:"candidate,omitempty"`
	Errors    []string    `json:"errors,omitempty"`
}

// PreviewResult is the read-only classification of a full upload, in source
// order. It is never persisted; the operator resubmits chosen rows on commit.
type PreviewResult struct {
	Outcomes   []RowOutcome `json:"outcomes"`
	Total      int          `json:"total"`
	Valid      int          `json:"valid"`
	Duplicates int          `json:"duplicates"`
	Errors     int          `json:"errors"`
}

// CommitFailure records one row that could not be persisted.
type CommitFailure struct {
	Row   int    `json:"row"`
	Phone string `json:"phone,omitempty"`
	Error string `json:"error"`
}

// CommitReport summarizes a commit call. Rows succeed or fail independently;
// partial success is expected and reported, never rolled back.
type CommitReport struct {
	Success  int             `json:"success"`
	Failed   int             `json:"failed"`
	Failures []CommitFailure `json:"failures,omitempty"`
}
