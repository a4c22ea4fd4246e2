package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrLinking         = errors.New("entity linking failed")
	ErrSiteUnavailable = errors.New("entity site unavailable")
)
