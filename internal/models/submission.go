package models

import "encoding/json"

// SubmissionStatus is the ordinal lifecycle state of a report submission.
type SubmissionStatus int

const (
	StatusDraft SubmissionStatus = iota
	StatusPending
	StatusSubmitted
	StatusApproved
	StatusRejected
)

// String returns the display name for a status.
func (s SubmissionStatus) String() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusPending:
		return "Pending"
	case StatusSubmitted:
		return "Submitted"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Countable reports whether a submission in this status participates in
// aggregate views.
func (s SubmissionStatus) Countable() bool {
	return s == StatusSubmitted || s == StatusApproved
}

// Submission is a raw report submission record as returned by the upstream
// backend. Fields is left opaque here; it may be a JSON object, a
// JSON-encoded string, or absent, and must go through report.NormalizeFields
// before anything reads it.
type Submission struct {
	SubmissionID       string           `json:"submission_id"`
	ReportAssignmentID string           `json:"report_assignment_id"`
	GradeLevel         *int             `json:"grade_level,omitempty"`
	Status             SubmissionStatus `json:"status"`
	DateSubmitted      *string          `json:"date_submitted,omitempty"`
	SubmittedBy        string           `json:"submitted_by"`
	SubmittedByName    string           `json:"submitted_by_name"`
	SubjectName        string           `json:"subject_name,omitempty"`
	CoordinatorName    string           `json:"coordinator_name,omitempty"`
	Fields             json.RawMessage  `json:"fields,omitempty"`
}

// Row is a single trait record inside a submission's rows/mps_rows arrays.
// It maps stored column keys (heterogeneous casing and naming) to values.
type Row map[string]interface{}

// Trait returns the row's trait label, tolerating key-case variants.
func (r Row) Trait() string {
	for _, key := range []string{"trait", "Trait", "TRAIT"} {
		if v, ok := r[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// SubmissionFields is the normalized shape of a submission's fields payload.
type SubmissionFields struct {
	Rows    []Row                  `json:"rows"`
	MPSRows []Row                  `json:"mps_rows"`
	Extra   map[string]interface{} `json:"-"`
}
