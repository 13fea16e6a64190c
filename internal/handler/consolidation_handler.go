package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/srp-dev/consolidation-api/internal/models"
	"github.com/srp-dev/consolidation-api/internal/service"
	appErrors "github.com/srp-dev/consolidation-api/pkg/errors"
	"github.com/srp-dev/consolidation-api/pkg/response"
)

type consolidationService interface {
	ByGrade(ctx context.Context, filter service.ConsolidationFilter) (*models.Consolidation, error)
	BySubject(ctx context.Context, filter service.ConsolidationFilter) (*models.Consolidation, error)
}

// ConsolidationHandler exposes the consolidated report views.
type ConsolidationHandler struct {
	consolidations consolidationService
}

// NewConsolidationHandler constructs handler.
func NewConsolidationHandler(consolidations consolidationService) *ConsolidationHandler {
	return &ConsolidationHandler{consolidations: consolidations}
}

func consolidationFilter(c *gin.Context) (service.ConsolidationFilter, error) {
	filter := service.ConsolidationFilter{
		CoordinatorID: c.Query("coordinatorId"),
		Subject:       c.Query("subject"),
	}
	if raw := c.Query("gradeLevel"); raw != "" {
		grade, err := strconv.Atoi(raw)
		if err != nil || grade < 1 || grade > 12 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "gradeLevel must be an integer between 1 and 12")
		}
		filter.GradeLevel = &grade
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleCoordinator {
		// Coordinators only ever see their own submissions.
		filter.CoordinatorID = claims.UserID
	}
	return filter, nil
}

// ByGrade godoc
// @Summary Consolidated LAEMPL and MPS tables grouped by grade level
// @Tags Consolidations
// @Produce json
// @Param coordinatorId query string false "Restrict to one coordinator"
// @Param gradeLevel query int false "Restrict to one grade level"
// @Param subject query string false "Restrict to one subject"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /consolidations/by-grade [get]
func (h *ConsolidationHandler) ByGrade(c *gin.Context) {
	filter, err := consolidationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.consolidations.ByGrade(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BySubject godoc
// @Summary Consolidated MPS tables grouped by subject
// @Tags Consolidations
// @Produce json
// @Param coordinatorId query string false "Restrict to one coordinator"
// @Param gradeLevel query int false "Restrict to one grade level"
// @Param subject query string false "Restrict to one subject"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /consolidations/by-subject [get]
func (h *ConsolidationHandler) BySubject(c *gin.Context) {
	filter, err := consolidationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.consolidations.BySubject(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
