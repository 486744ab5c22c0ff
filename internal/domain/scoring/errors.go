package scoring

import "errors"

// Sentinel kinds for fairness model errors.
var (
	ErrInvalidProfile = errors.New("invalid fairness profile")
	ErrModelRequired  = errors.New("blending requires a verified model")
)
