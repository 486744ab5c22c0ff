package selector

import "errors"

// Sentinel kinds for selector errors.
var (
	ErrEmptyRound         = errors.New("round has no scores")
	ErrDuplicateValidator = errors.New("validator scored more than once")
	ErrInvalidLimit       = errors.New("invalid limit")
)
