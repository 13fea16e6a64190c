package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/srp-dev/consolidation-api/internal/models"
	appErrors "github.com/srp-dev/consolidation-api/pkg/errors"
)

// TokenService validates bearer tokens issued by the main backend. This
// service never issues tokens; authentication lives upstream.
type TokenService struct {
	secret []byte
}

// NewTokenService constructs a token validator with the shared secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// ValidateToken parses and verifies an access token.
func (s *TokenService) ValidateToken(tokenStr string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing subject")
	}
	return claims, nil
}
