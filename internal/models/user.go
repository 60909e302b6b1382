package models

import (
	"time"
)

// Role identifies what a user is allowed to do
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleCitizen Role = "CITIZEN"
)

// ValidRole reports whether r is one of the known roles
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleCitizen
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
	DOB          *time.Time
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
