package model

import (
	"fmt"
	"math"

	"github.com/okian/fairness/internal/domain/fixedpoint"
)

// LegacyFixture is a historical test vector with fractional 0.0-1.0 metrics.
type LegacyFixture struct {
	ValidatorID  string  `json:"validator_id"`
	Uptime       float64 `json:"uptime"`
	LatencyScore float64 `json:"latency_score"`
	Honesty      float64 `json:"honesty"`
}

// FromFractional scales f by fixedpoint.Scale and rounds half away from zero.
//
// Deprecated: only for converting legacy fixtures. Scoring never calls it.
func FromFractional(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrFractional, f)
	}
	v := math.Round(f * float64(fixedpoint.Scale))
	if v >= math.MaxInt64 || v < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v out of range", ErrFractional, f)
	}
	return int64(v), nil
}

// FromLegacy converts a legacy fixture into integer metrics.
//
// Deprecated: only for converting legacy fixtures. Scoring never calls it.
func FromLegacy(f LegacyFixture) (ValidatorMetrics, error) {
	var vals [3]int64
	for i, x := range [...]float64{f.Uptime, f.LatencyScore, f.Honesty} {
		v, err := FromFractional(x)
		if err != nil {
			return ValidatorMetrics{}, fmt.Errorf("%s: %w", metricNames[i], err)
		}
		vals[i] = v
	}
	m := NewValidatorMetrics(f.ValidatorID, vals[0], vals[1], vals[2])
	return m, m.Validate()
}
