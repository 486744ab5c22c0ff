package dgbdt

import (
	"fmt"

	"github.com/okian/fairness/internal/domain/fixedpoint"
	"github.com/okian/fairness/internal/domain/model"
)

// Validate checks every structural invariant the evaluator relies on.
func (m *Model) Validate() error {
	if m.Version != FormatVersion {
		return &FormatError{Path: "version", Reason: fmt.Sprintf("got %d, want %d", m.Version, FormatVersion), Err: ErrUnsupportedVersion}
	}
	if m.Scale != fixedpoint.Scale {
		return formatErr("scale", "got %d, want %d", m.Scale, fixedpoint.Scale)
	}
	seen := make(map[string]struct{}, len(m.Features))
	for i, f := range m.Features {
		path := fmt.Sprintf("features[%d]", i)
		if !model.KnownMetric(f) {
			return formatErr(path, "unknown metric %q", f)
		}
		if _, dup := seen[f]; dup {
			return formatErr(path, "duplicate metric %q", f)
		}
		seen[f] = struct{}{}
	}
	if m.MinScore >= m.MaxScore {
		return formatErr("min_score", "min_score %d must be below max_score %d", m.MinScore, m.MaxScore)
	}
	if len(m.Trees) == 0 {
		return formatErr("trees", "at least one tree is required")
	}
	if len(m.Trees) > MaxTrees {
		return formatErr("trees", "%d trees exceeds limit %d", len(m.Trees), MaxTrees)
	}
	for i := range m.Trees {
		if err := m.Trees[i].validate(i, len(m.Features)); err != nil {
			return err
		}
	}
	return nil
}

// validate checks that the nodes form one binary tree rooted at 0: every
// child index is in range and every node has exactly one parent, except the
// root which has none.
func (t *Tree) validate(ti, featureCount int) error {
	base := fmt.Sprintf("trees[%d]", ti)
	n := len(t.Nodes)
	if n == 0 {
		return formatErr(base, "tree has no nodes")
	}
	if n > MaxNodesPerTree {
		return formatErr(base, "%d nodes exceeds limit %d", n, MaxNodesPerTree)
	}

	reached := make([]bool, n)
	reached[0] = true
	stack := []int{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		path := fmt.Sprintf("%s.nodes[%d]", base, idx)
		node := &t.Nodes[idx]

		switch node.Kind {
		case KindLeaf:
			if node.Value == nil {
				return formatErr(path, "leaf without value")
			}
			if node.Feature != nil || node.Threshold != nil || node.Left != nil || node.Right != nil {
				return formatErr(path, "leaf carries split fields")
			}
		case KindInternal:
			if node.Feature == nil || node.Threshold == nil || node.Left == nil || node.Right == nil {
				return formatErr(path, "internal node missing feature, threshold or child")
			}
			if node.Value != nil {
				return formatErr(path, "internal node carries a value")
			}
			if *node.Feature < 0 || *node.Feature >= featureCount {
				return formatErr(path, "feature index %d out of range [0,%d)", *node.Feature, featureCount)
			}
			for _, child := range [2]int{*node.Left, *node.Right} {
				if child < 0 || child >= n {
					return formatErr(path, "dangling child index %d", child)
				}
				if reached[child] {
					return formatErr(path, "child %d already has a parent or is the root", child)
				}
				reached[child] = true
				stack = append(stack, child)
			}
		default:
			return formatErr(path, "unknown node kind %q", node.Kind)
		}
	}

	for idx, ok := range reached {
		if !ok {
			return formatErr(fmt.Sprintf("%s.nodes[%d]", base, idx), "node unreachable from root")
		}
	}
	return nil
}
