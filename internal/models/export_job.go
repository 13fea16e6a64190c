package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportFormat enumerates supported export artefacts.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
)

// GroupingMode selects how the workbook is sliced into sheets.
type GroupingMode string

const (
	GroupByGrade   GroupingMode = "grade"
	GroupBySubject GroupingMode = "subject"
)

// ExportStatus tracks the lifecycle of an export job.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "queued"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusFinished   ExportStatus = "finished"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportJobParams captures the consolidation filters an export runs with.
type ExportJobParams struct {
	Grouping      GroupingMode `json:"grouping"`
	Format        ExportFormat `json:"format"`
	CoordinatorID string       `json:"coordinatorId,omitempty"`
	GradeLevel    *int         `json:"gradeLevel,omitempty"`
	Subject       string       `json:"subject,omitempty"`
	SubmissionID  string       `json:"submissionId,omitempty"`
}

// Value serialises params for the jsonb column.
func (p ExportJobParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan deserialises params from the jsonb column.
func (p *ExportJobParams) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = ExportJobParams{}
		return nil
	default:
		return fmt.Errorf("unsupported export params type %T", src)
	}
}

// ExportJob is a persisted export request.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	Params       ExportJobParams `db:"params" json:"params"`
	Status       ExportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"resultUrl,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error,omitempty"`
	CreatedBy    string          `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finishedAt,omitempty"`
}
