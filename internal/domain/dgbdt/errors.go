package dgbdt

import (
	"errors"
	"fmt"
)

// Sentinel kinds for model errors.
var (
	ErrModelFormat        = errors.New("model format error")
	ErrUnsupportedVersion = errors.New("unsupported model version")
	ErrEvaluationOverflow = errors.New("evaluation overflow")
	ErrFeatureCount       = errors.New("feature vector length mismatch")
)

// FormatError reports a malformed model artifact. It matches ErrModelFormat.
type FormatError struct {
	Path   string // location inside the artifact, e.g. trees[2].nodes[5]; empty for the whole file
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", ErrModelFormat, e.Reason)
	}
	return fmt.Sprintf("%s at %s: %s", ErrModelFormat, e.Path, e.Reason)
}

// Is reports whether target is ErrModelFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrModelFormat
}

// Unwrap returns the underlying cause, if any.
func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErr(path, format string, args ...any) *FormatError {
	return &FormatError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
