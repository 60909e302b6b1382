package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Actor is the already-authenticated identity a request runs as
type Actor struct {
	ID    string
	Email string
	Role  Role
}

type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
