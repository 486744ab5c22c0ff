package fixedpoint

import "errors"

// Sentinel kinds for fixed-point errors.
var (
	ErrOverflow       = errors.New("fixed-point overflow")
	ErrDivisionByZero = errors.New("fixed-point division by zero")
	ErrEmptyRange     = errors.New("fixed-point range is empty")
)
