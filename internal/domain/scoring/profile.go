package scoring

import (
	"fmt"
	"sort"

	"github.com/okian/fairness/internal/domain/model"
)

// WeightTotal is the required sum of all metric weights, in percentage points.
const WeightTotal = 100

// Blend selects whether the D-GBDT output is mixed into the final score.
// WeightedPercent and ModelPercent must sum to 100 when enabled.
type Blend struct {
	Enabled         bool  `json:"enabled"          yaml:"enabled"`
	WeightedPercent int64 `json:"weighted_percent" yaml:"weighted_percent"`
	ModelPercent    int64 `json:"model_percent"    yaml:"model_percent"`
}

// Profile is the versioned configuration of a fairness score function.
type Profile struct {
	Version string           `json:"version" yaml:"version"`
	Weights map[string]int64 `json:"weights" yaml:"weights"`
	Blend   Blend            `json:"blend"   yaml:"blend"`
}

// DefaultProfile returns the profile shipped with fairness-v1.
func DefaultProfile() Profile {
	return Profile{
		Version: "fairness-v1",
		Weights: map[string]int64{
			model.MetricUptime:       40,
			model.MetricLatencyScore: 30,
			model.MetricHonesty:      30,
		},
		Blend: Blend{Enabled: true, WeightedPercent: 70, ModelPercent: 30},
	}
}

// Validate checks the weight and blend invariants.
func (p Profile) Validate() error {
	if p.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidProfile)
	}
	names := make([]string, 0, len(p.Weights))
	for name := range p.Weights {
		names = append(names, name)
	}
	sort.Strings(names)

	var sum int64
	for _, name := range names {
		w := p.Weights[name]
		if !model.KnownMetric(name) {
			return fmt.Errorf("%w: unknown metric %q", ErrInvalidProfile, name)
		}
		if w < 0 || w > WeightTotal {
			return fmt.Errorf("%w: weight %s=%d outside [0,%d]", ErrInvalidProfile, name, w, WeightTotal)
		}
		sum += w
	}
	if sum != WeightTotal {
		return fmt.Errorf("%w: weights sum to %d, want %d", ErrInvalidProfile, sum, WeightTotal)
	}
	if p.Blend.Enabled {
		b := p.Blend
		if b.WeightedPercent < 0 || b.ModelPercent < 0 || b.WeightedPercent+b.ModelPercent != WeightTotal {
			return fmt.Errorf("%w: blend %d/%d must be non-negative and sum to %d",
				ErrInvalidProfile, b.WeightedPercent, b.ModelPercent, WeightTotal)
		}
	}
	return nil
}
