package dgbdt

import (
	"fmt"

	"github.com/okian/fairness/internal/domain/fixedpoint"
	"github.com/okian/fairness/internal/domain/model"
)

// Evaluate walks every tree in stored order, sums the reached leaves and
// base_score in a wide accumulator and clamps into [min_score, max_score].
// An internal node sends features[f] <= threshold to the left child.
func (m *Model) Evaluate(features []int64) (int64, error) {
	if len(features) != len(m.Features) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), len(m.Features))
	}
	var acc fixedpoint.Accumulator
	for i := range m.Trees {
		leaf, err := m.Trees[i].walk(i, features)
		if err != nil {
			return 0, err
		}
		if err := acc.Add(leaf); err != nil {
			return 0, fmt.Errorf("%w: tree %d", ErrEvaluationOverflow, i)
		}
	}
	if err := acc.Add(m.BaseScore); err != nil {
		return 0, fmt.Errorf("%w: base_score", ErrEvaluationOverflow)
	}
	return acc.ClampInt64(m.MinScore, m.MaxScore), nil
}

// walk returns the leaf value reached by features. It never visits more
// nodes than the tree holds, so an unvalidated cycle is reported, not looped.
func (t *Tree) walk(ti int, features []int64) (int64, error) {
	idx := 0
	for step := 0; step < len(t.Nodes); step++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, formatErr(fmt.Sprintf("trees[%d]", ti), "dangling child index %d", idx)
		}
		node := &t.Nodes[idx]
		switch node.Kind {
		case KindLeaf:
			if node.Value == nil {
				return 0, formatErr(fmt.Sprintf("trees[%d].nodes[%d]", ti, idx), "leaf without value")
			}
			return *node.Value, nil
		case KindInternal:
			if node.Feature == nil || node.Threshold == nil || node.Left == nil || node.Right == nil ||
				*node.Feature < 0 || *node.Feature >= len(features) {
				return 0, formatErr(fmt.Sprintf("trees[%d].nodes[%d]", ti, idx), "malformed internal node")
			}
			if features[*node.Feature] <= *node.Threshold {
				idx = *node.Left
			} else {
				idx = *node.Right
			}
		default:
			return 0, formatErr(fmt.Sprintf("trees[%d].nodes[%d]", ti, idx), "unknown node kind %q", node.Kind)
		}
	}
	return 0, formatErr(fmt.Sprintf("trees[%d]", ti), "traversal exceeds %d nodes", len(t.Nodes))
}

// FeatureVector returns m's feature vector for metrics in declared order.
func (m *Model) FeatureVector(metrics model.ValidatorMetrics) ([]int64, error) {
	out := make([]int64, len(m.Features))
	for i, name := range m.Features {
		v, ok := metrics.Value(name)
		if !ok {
			return nil, formatErr(fmt.Sprintf("features[%d]", i), "unknown metric %q", name)
		}
		out[i] = v
	}
	return out, nil
}

// EvaluateMetrics is FeatureVector followed by Evaluate.
func (m *Model) EvaluateMetrics(metrics model.ValidatorMetrics) (int64, error) {
	fv, err := m.FeatureVector(metrics)
	if err != nil {
		return 0, err
	}
	return m.Evaluate(fv)
}
