// Package scoring computes validator fairness scores with integer-only
// arithmetic.
package scoring

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"

	"github.com/okian/fairness/internal/domain/dgbdt"
	"github.com/okian/fairness/internal/domain/fixedpoint"
	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/pkg/metrics"
)

// FairnessModel scores validators with a profile and an optional verified
// D-GBDT model. It is immutable and safe for concurrent use.
type FairnessModel struct {
	profile     Profile
	weights     []int64 // indexed like model.MetricNames()
	model       *dgbdt.Model
	modelHash   string
	fingerprint string
}

var _ model.Scorer = (*FairnessModel)(nil)

// New builds a FairnessModel. m and modelHash may be empty only when the
// profile does not blend.
func New(profile Profile, m *dgbdt.Model, modelHash string) (*FairnessModel, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if profile.Blend.Enabled && m == nil {
		return nil, ErrModelRequired
	}

	names := model.MetricNames()
	weights := make([]int64, len(names))
	copied := make(map[string]int64, len(profile.Weights))
	for i, name := range names {
		weights[i] = profile.Weights[name]
	}
	for k, v := range profile.Weights {
		copied[k] = v
	}
	profile.Weights = copied

	f := &FairnessModel{
		profile:   profile,
		weights:   weights,
		model:     m,
		modelHash: modelHash,
	}
	f.fingerprint = f.computeFingerprint()
	return f, nil
}

// Score computes one validator's fairness score. Out-of-range metrics are
// clamped into [0, Scale] and counted; they are never an error.
func (f *FairnessModel) Score(ctx context.Context, in model.ValidatorMetrics) (model.ScoreResult, error) {
	if err := ctx.Err(); err != nil {
		return model.ScoreResult{}, fmt.Errorf("context cancelled: %w", err)
	}
	if err := in.Validate(); err != nil {
		return model.ScoreResult{}, err
	}

	clamped, names := in.Clamped(0, fixedpoint.Scale)
	for _, name := range names {
		metrics.RecordMetricClamped(name)
	}

	weighted, err := f.weighted(clamped)
	if err != nil {
		return model.ScoreResult{}, err
	}
	res := model.ScoreResult{
		ValidatorID: in.ValidatorID,
		Score:       weighted,
		Weighted:    weighted,
		Clamped:     names,
	}

	if f.profile.Blend.Enabled {
		raw, err := f.model.EvaluateMetrics(clamped)
		if err != nil {
			return model.ScoreResult{}, fmt.Errorf("validator %s: %w", in.ValidatorID, err)
		}
		norm, err := fixedpoint.Rescale(raw, f.model.MinScore, f.model.MaxScore)
		if err != nil {
			return model.ScoreResult{}, fmt.Errorf("normalize model score: %w", err)
		}
		var acc fixedpoint.Accumulator
		if err := acc.AddProduct(weighted, f.profile.Blend.WeightedPercent); err != nil {
			return model.ScoreResult{}, err
		}
		if err := acc.AddProduct(norm, f.profile.Blend.ModelPercent); err != nil {
			return model.ScoreResult{}, err
		}
		final, err := acc.Quotient(WeightTotal)
		if err != nil {
			return model.ScoreResult{}, err
		}
		res.Model = raw
		res.Score = fixedpoint.Clamp(final, 0, fixedpoint.Scale)
	}

	return res, nil
}

// weighted returns trunc(sum(weight_i * metric_i) / 100) over clamped metrics.
func (f *FairnessModel) weighted(m model.ValidatorMetrics) (int64, error) {
	var acc fixedpoint.Accumulator
	for i, name := range model.MetricNames() {
		v, _ := m.Value(name)
		if err := acc.AddProduct(f.weights[i], v); err != nil {
			return 0, err
		}
	}
	return acc.Quotient(WeightTotal)
}

// Profile returns a copy of the profile.
func (f *FairnessModel) Profile() Profile {
	p := f.profile
	p.Weights = make(map[string]int64, len(f.profile.Weights))
	for k, v := range f.profile.Weights {
		p.Weights[k] = v
	}
	return p
}

// Model returns the blended D-GBDT model, or nil.
func (f *FairnessModel) Model() *dgbdt.Model {
	return f.model
}

// ModelHash returns the pinned hash of the model this profile is paired with.
func (f *FairnessModel) ModelHash() string {
	return f.modelHash
}

// Fingerprint identifies the (profile, model hash) pair. Two fairness
// models with the same fingerprint produce the same scores.
func (f *FairnessModel) Fingerprint() string {
	return f.fingerprint
}

func (f *FairnessModel) computeFingerprint() string {
	h := blake3.New(32, nil)
	var buf [8]byte
	writeString := func(s string) {
		binary.BigEndian.PutUint32(buf[:4], uint32(len(s))) //nolint:gosec // bounded by config size
		_, _ = h.Write(buf[:4])
		_, _ = h.Write([]byte(s))
	}
	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v)) //nolint:gosec // two's complement bytes
		_, _ = h.Write(buf[:])
	}

	writeString("fairness-profile")
	writeString(f.profile.Version)
	for i, name := range model.MetricNames() {
		writeString(name)
		writeInt(f.weights[i])
	}
	if f.profile.Blend.Enabled {
		writeInt(1)
		writeInt(f.profile.Blend.WeightedPercent)
		writeInt(f.profile.Blend.ModelPercent)
	} else {
		writeInt(0)
		writeInt(0)
		writeInt(0)
	}
	writeString(f.modelHash)
	return hex.EncodeToString(h.Sum(nil))
}
