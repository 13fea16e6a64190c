package models

import "time"

// SubmissionTables is one submission rendered as its LAEMPL and MPS views.
type SubmissionTables struct {
	SubmissionID    string `json:"submissionId"`
	SubjectName     string `json:"subjectName,omitempty"`
	SubmittedByName string `json:"submittedByName,omitempty"`
	LAEMPL          Table  `json:"laempl"`
	MPS             Table  `json:"mps"`
}

// CoordinatorBlock groups one coordinator's submissions inside a grade.
type CoordinatorBlock struct {
	CoordinatorName string             `json:"coordinatorName"`
	Submissions     []SubmissionTables `json:"submissions"`
}

// GradeGroup is the by-grade consolidation unit: one grade level with a
// block per contributing coordinator.
type GradeGroup struct {
	GradeLevel   int                `json:"gradeLevel"`
	Label        string             `json:"label"`
	Coordinators []CoordinatorBlock `json:"coordinators"`
}

// SubjectView is the by-subject consolidation unit: one canonical subject
// whose table rows are merged "Grade N" rows.
type SubjectView struct {
	Subject string `json:"subject"`
	LAEMPL  Table  `json:"laempl"`
	MPS     Table  `json:"mps"`
}

// Consolidation is a full aggregation snapshot for one top-level load.
type Consolidation struct {
	Mode        GroupingMode  `json:"mode"`
	Grades      []GradeGroup  `json:"grades,omitempty"`
	Subjects    []SubjectView `json:"subjects,omitempty"`
	Fallback    bool          `json:"fallback"`
	Notes       []string      `json:"notes,omitempty"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
