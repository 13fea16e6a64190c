package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates roles recognised by route guards.
type UserRole string

const (
	RoleTeacher     UserRole = "TEACHER"
	RoleCoordinator UserRole = "COORDINATOR"
	RolePrincipal   UserRole = "PRINCIPAL"
	RoleAdmin       UserRole = "ADMIN"
)

// JWTClaims carries identity claims issued by the main backend.
type JWTClaims struct {
	UserID   string   `json:"sub"`
	Role     UserRole `json:"role"`
	FullName string   `json:"name,omitempty"`
	jwt.RegisteredClaims
}
