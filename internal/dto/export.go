package dto

import (
	"github.com/srp-dev/consolidation-api/internal/models"
	appErrors "github.com/srp-dev/consolidation-api/pkg/errors"
)

// ExportRequest captures the POST /exports payload.
type ExportRequest struct {
	Grouping      models.GroupingMode `json:"grouping" validate:"omitempty,oneof=grade subject"`
	Format        models.ExportFormat `json:"format" validate:"required,oneof=xlsx csv pdf"`
	CoordinatorID string              `json:"coordinatorId,omitempty"`
	GradeLevel    *int                `json:"gradeLevel,omitempty" validate:"omitempty,min=1,max=12"`
	Subject       string              `json:"subject,omitempty"`
	SubmissionID  string              `json:"submissionId,omitempty"`
}

// Params converts the request into persisted job parameters, applying
// format-specific requirements.
func (r ExportRequest) Params() (models.ExportJobParams, error) {
	grouping := r.Grouping
	if grouping == "" {
		grouping = models.GroupByGrade
	}
	if r.Format == models.ExportFormatCSV && r.SubmissionID == "" {
		return models.ExportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "submissionId is required for csv exports")
	}
	return models.ExportJobParams{
		Grouping:      grouping,
		Format:        r.Format,
		CoordinatorID: r.CoordinatorID,
		GradeLevel:    r.GradeLevel,
		Subject:       r.Subject,
		SubmissionID:  r.SubmissionID,
	}, nil
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
