package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/srp-dev/consolidation-api/internal/middleware"
	"github.com/srp-dev/consolidation-api/internal/models"
	"github.com/srp-dev/consolidation-api/internal/service"
)

type consolidationServiceMock struct {
	byGrade    *models.Consolidation
	bySubject  *models.Consolidation
	err        error
	lastFilter service.ConsolidationFilter
}

func (m *consolidationServiceMock) ByGrade(ctx context.Context, filter service.ConsolidationFilter) (*models.Consolidation, error) {
	m.lastFilter = filter
	return m.byGrade, m.err
}

func (m *consolidationServiceMock) BySubject(ctx context.Context, filter service.ConsolidationFilter) (*models.Consolidation, error) {
	m.lastFilter = filter
	return m.bySubject, m.err
}

func newConsolidationContext(path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	c.Request = req
	return c, w
}

func TestConsolidationHandlerByGrade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &consolidationServiceMock{byGrade: &models.Consolidation{Mode: models.GroupByGrade}}
	handler := NewConsolidationHandler(mockSvc)

	c, w := newConsolidationContext("/consolidations/by-grade?gradeLevel=3&subject=Math")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.ByGrade(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.GradeLevel)
	require.Equal(t, 3, *mockSvc.lastFilter.GradeLevel)
	require.Equal(t, "Math", mockSvc.lastFilter.Subject)
}

func TestConsolidationHandlerInvalidGrade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConsolidationHandler(&consolidationServiceMock{})

	c, w := newConsolidationContext("/consolidations/by-grade?gradeLevel=abc")

	handler.ByGrade(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsolidationHandlerCoordinatorScopedToSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &consolidationServiceMock{bySubject: &models.Consolidation{Mode: models.GroupBySubject}}
	handler := NewConsolidationHandler(mockSvc)

	c, w := newConsolidationContext("/consolidations/by-subject?coordinatorId=someone-else")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "coord-1", Role: models.RoleCoordinator})

	handler.BySubject(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "coord-1", mockSvc.lastFilter.CoordinatorID)

	var envelope struct {
		Data models.Consolidation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, models.GroupBySubject, envelope.Data.Mode)
}
