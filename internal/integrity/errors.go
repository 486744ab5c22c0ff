package integrity

import (
	"errors"
	"fmt"
)

// Sentinel kinds for integrity gate errors.
var (
	ErrIntegrity  = errors.New("model integrity check failed")
	ErrMissingPin = errors.New("expected model hash is not configured")
	ErrInvalidPin = errors.New("expected model hash must be 64 hex characters")
	ErrRead       = errors.New("read model file")
	ErrTooLarge   = errors.New("model file exceeds size limit")
)

// IntegrityError reports a model file whose digest differs from the pin.
// It is a tamper signal. It matches ErrIntegrity.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s has blake3 %s, pinned %s", ErrIntegrity, e.Path, e.Actual, e.Expected)
}

// Is reports whether target is ErrIntegrity.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}
