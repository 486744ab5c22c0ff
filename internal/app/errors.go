package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrStopped    = errors.New("service stopped")
	ErrNoModel    = errors.New("service has no model file to reload")
)
