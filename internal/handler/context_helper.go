package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/srp-dev/consolidation-api/internal/middleware"
	"github.com/srp-dev/consolidation-api/internal/models"
)

// claimsFromContext reads the JWT claims the auth middleware stored on the
// request. A nil return means the route was reached without authentication.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
