package models

// ReportAssignment is the scheduled reporting task a submission answers.
// Read-only here; created and edited by the main backend.
type ReportAssignment struct {
	ReportAssignmentID       string  `json:"report_assignment_id"`
	Title                    string  `json:"title"`
	CategoryID               string  `json:"category_id"`
	CategoryName             string  `json:"category_name"`
	SubCategoryID            string  `json:"sub_category_id"`
	SubCategoryName          string  `json:"sub_category_name"`
	FromDate                 string  `json:"from_date"`
	ToDate                   string  `json:"to_date"`
	Instruction              string  `json:"instruction"`
	AllowLate                bool    `json:"allow_late"`
	GivenBy                  string  `json:"given_by"`
	CoordinatorUserID        string  `json:"coordinator_user_id"`
	AdvisoryUserID           string  `json:"advisory_user_id"`
	GradeLevelID             *int    `json:"grade_level_id,omitempty"`
	ParentReportAssignmentID *string `json:"parent_report_assignment_id,omitempty"`
}

// IsDelegated reports whether this assignment is a delegated copy of another
// assignment. Delegated copies are excluded from a coordinator's own
// aggregate views.
func (a ReportAssignment) IsDelegated() bool {
	return a.ParentReportAssignmentID != nil && *a.ParentReportAssignmentID != ""
}
