package repository

import "errors"

// Sentinel kinds for baseline store errors.
var (
	ErrNotFound   = errors.New("baseline not found")
	ErrInvalidKey = errors.New("invalid baseline key")
)
