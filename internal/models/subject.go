package models

// Subject is a subject offered at a grade level, fetched from the upstream
// backend and used to resolve dynamic subject_<id> score columns.
type Subject struct {
	SubjectID   int    `json:"subject_id"`
	SubjectName string `json:"subject_name"`
}

// Section is a class section within a grade level. Section names are used as
// fallback trait labels when a grade has no submitted rows.
type Section struct {
	SectionID   int    `json:"section_id"`
	SectionName string `json:"section_name"`
	GradeLevel  int    `json:"grade_level"`
}
