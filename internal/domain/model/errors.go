package model

import "errors"

// Sentinel kinds for metrics decoding errors.
var (
	ErrMissingValidatorID = errors.New("validator_id is required")
	ErrMissingMetric      = errors.New("metric is required")
	ErrInvalidMetric      = errors.New("metric must be an integer literal")
	ErrSchemaVersion      = errors.New("unsupported metrics schema version")
	ErrFractional         = errors.New("fractional value is not convertible")
)
