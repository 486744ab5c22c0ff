package harness

import (
	"fmt"
	"math"

	"github.com/okian/fairness/internal/domain/fixedpoint"
	"github.com/okian/fairness/internal/domain/model"
)

// Corpus versions.
const (
	CorpusV1          = 1
	DefaultCorpusSize = 256
	MaxCorpusSize     = 1 << 20

	corpusV1Seed uint64 = 0xF41E_5C0E_D6BD_7001
)

// Corpus returns the fixed metrics vectors of a corpus version. The first
// vectors are hand-picked edge cases; the rest come from a seeded integer
// generator. Every vector has a distinct validator ID.
func Corpus(version, size int) ([]model.ValidatorMetrics, error) {
	if version != CorpusV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCorpusVersion, version)
	}
	if size < 1 || size > MaxCorpusSize {
		return nil, fmt.Errorf("%w: %d", ErrCorpusSize, size)
	}

	out := edgeVectorsV1()
	if size <= len(out) {
		return out[:size], nil
	}
	rng := splitMix64{state: corpusV1Seed}
	for i := len(out); i < size; i++ {
		out = append(out, model.NewValidatorMetrics(
			fmt.Sprintf("vec-%06d", i),
			rng.metric(), rng.metric(), rng.metric(),
		))
	}
	return out, nil
}

func edgeVectorsV1() []model.ValidatorMetrics {
	const s = fixedpoint.Scale
	v := model.NewValidatorMetrics
	return []model.ValidatorMetrics{
		v("edge-zero", 0, 0, 0),
		v("edge-scale", s, s, s),
		v("edge-half", s/2, s/2, s/2),
		v("edge-one", 1, 1, 1),
		v("edge-scale-minus-one", s-1, s-1, s-1),
		v("edge-split-at", 9000, 5000, 5000),
		v("edge-split-above", 9001, 5001, 5001),
		v("edge-honesty-at", 9001, 5000, 8000),
		v("edge-honesty-above", 9001, 5000, 8001),
		v("edge-uptime-only", s, 0, 0),
		v("edge-latency-only", 0, s, 0),
		v("edge-honesty-only", 0, 0, s),
		v("edge-below-range", -1, -s, math.MinInt64),
		v("edge-above-range", s+1, 2*s, math.MaxInt64),
		v("edge-mixed-range", -1, s/2, s+1),
		v("edge-int64-extremes", math.MinInt64, math.MaxInt64, math.MinInt64),
		// Equal scores listed in descending ID order: the ranking must reverse them.
		v("tie-d", 7000, 7000, 7000),
		v("tie-c", 7000, 7000, 7000),
		v("tie-b", 7000, 7000, 7000),
		v("tie-a", 7000, 7000, 7000),
		v("Tie-A", 7000, 7000, 7000),
		v("tie-zero-b", 0, 0, 0),
		v("tie-zero-a", 0, 0, 0),
	}
}

// splitMix64 is a tiny deterministic integer generator.
type splitMix64 struct {
	state uint64
}

func (r *splitMix64) next() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// metric draws a value in [0, Scale], or slightly outside it one time in
// sixteen so clamping stays exercised.
func (r *splitMix64) metric() int64 {
	const span = uint64(fixedpoint.Scale) + 1
	v := int64(r.next() % span) //nolint:gosec // bounded by span
	switch r.next() % 16 {
	case 0:
		return -1 - v
	case 1:
		return fixedpoint.Scale + 1 + v
	default:
		return v
	}
}
