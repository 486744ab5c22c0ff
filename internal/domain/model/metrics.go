// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CurrentSchemaVersion is the metrics schema this build produces.
const CurrentSchemaVersion = 1

// Metric names, in the order every weighted sum iterates them.
const (
	MetricUptime       = "uptime"
	MetricLatencyScore = "latency_score"
	MetricHonesty      = "honesty"
)

var metricNames = [...]string{MetricUptime, MetricLatencyScore, MetricHonesty} //nolint:gochecknoglobals // fixed order

// MetricNames returns the known metric names in canonical order.
func MetricNames() []string {
	out := make([]string, len(metricNames))
	copy(out, metricNames[:])
	return out
}

// KnownMetric reports whether name is a scoring metric.
func KnownMetric(name string) bool {
	for _, n := range metricNames {
		if n == name {
			return true
		}
	}
	return false
}

// ValidatorMetrics is one validator's feature vector for one scoring epoch.
// All metrics are scaled integers nominally in [0, fixedpoint.Scale].
// Fields the current schema does not know are kept verbatim in Extra.
// A zero SchemaVersion means CurrentSchemaVersion, so a struct literal
// scores like NewValidatorMetrics.
type ValidatorMetrics struct {
	ValidatorID   string
	SchemaVersion int
	Uptime        int64
	LatencyScore  int64 // higher is better
	Honesty       int64
	Extra         map[string]json.RawMessage
}

// NewValidatorMetrics builds metrics at the current schema version.
func NewValidatorMetrics(id string, uptime, latencyScore, honesty int64) ValidatorMetrics {
	return ValidatorMetrics{
		ValidatorID:   id,
		SchemaVersion: CurrentSchemaVersion,
		Uptime:        uptime,
		LatencyScore:  latencyScore,
		Honesty:       honesty,
	}
}

// Value returns the named metric.
func (m ValidatorMetrics) Value(name string) (int64, bool) {
	switch name {
	case MetricUptime:
		return m.Uptime, true
	case MetricLatencyScore:
		return m.LatencyScore, true
	case MetricHonesty:
		return m.Honesty, true
	default:
		return 0, false
	}
}

// Clamped returns a copy with every metric bounded into [lo, hi] and the
// names of the metrics that were out of range, in canonical order.
func (m ValidatorMetrics) Clamped(lo, hi int64) (ValidatorMetrics, []string) {
	var names []string
	bound := func(name string, v int64) int64 {
		switch {
		case v < lo:
			names = append(names, name)
			return lo
		case v > hi:
			names = append(names, name)
			return hi
		}
		return v
	}
	out := m
	out.Uptime = bound(MetricUptime, m.Uptime)
	out.LatencyScore = bound(MetricLatencyScore, m.LatencyScore)
	out.Honesty = bound(MetricHonesty, m.Honesty)
	return out, names
}

// Validate checks the fields every scoring pass relies on.
func (m ValidatorMetrics) Validate() error {
	if m.ValidatorID == "" {
		return ErrMissingValidatorID
	}
	if m.SchemaVersion < 0 || m.SchemaVersion > CurrentSchemaVersion {
		return fmt.Errorf("%w: %d", ErrSchemaVersion, m.SchemaVersion)
	}
	return nil
}

func (m ValidatorMetrics) schemaVersion() int {
	if m.SchemaVersion == 0 {
		return CurrentSchemaVersion
	}
	return m.SchemaVersion
}

// MarshalJSON emits known fields and Extra with keys sorted.
func (m ValidatorMetrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["validator_id"] = m.ValidatorID
	out["schema_version"] = m.schemaVersion()
	out[MetricUptime] = m.Uptime
	out[MetricLatencyScore] = m.LatencyScore
	out[MetricHonesty] = m.Honesty
	return json.Marshal(out)
}

// UnmarshalJSON decodes metrics, rejecting non-integer metric literals.
func (m *ValidatorMetrics) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}

	var out ValidatorMetrics
	idRaw, ok := raw["validator_id"]
	if !ok {
		return ErrMissingValidatorID
	}
	if err := json.Unmarshal(idRaw, &out.ValidatorID); err != nil || out.ValidatorID == "" {
		return ErrMissingValidatorID
	}
	delete(raw, "validator_id")

	out.SchemaVersion = CurrentSchemaVersion
	if v, ok := raw["schema_version"]; ok {
		n, err := integer(v)
		if err != nil {
			return fmt.Errorf("%w: schema_version", ErrSchemaVersion)
		}
		if n < 1 {
			return fmt.Errorf("%w: %d", ErrSchemaVersion, n)
		}
		out.SchemaVersion = int(n)
		delete(raw, "schema_version")
	}

	for _, name := range metricNames {
		v, ok := raw[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingMetric, name)
		}
		n, err := integer(v)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidMetric, name)
		}
		switch name {
		case MetricUptime:
			out.Uptime = n
		case MetricLatencyScore:
			out.LatencyScore = n
		case MetricHonesty:
			out.Honesty = n
		}
		delete(raw, name)
	}

	if len(raw) > 0 {
		out.Extra = raw
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*m = out
	return nil
}

// integer accepts only a bare JSON integer that fits in int64.
func integer(raw json.RawMessage) (int64, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, ErrInvalidMetric
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n, nil
}
