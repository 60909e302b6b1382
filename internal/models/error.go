package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Complaint workflow errors
	ErrUnknownAction     = errors.New("unknown action")
	ErrInvalidTransition = errors.New("action not valid for current status")

	// Upload errors
	ErrInvalidUpload = errors.New("invalid upload")
)
