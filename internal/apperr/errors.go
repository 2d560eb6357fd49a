package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrResourceLoad    = errors.New("resource load failed")
	ErrResourceParse   = errors.New("resource parse failed")
	ErrTooManySessions = errors.New("too many sessions")
)
