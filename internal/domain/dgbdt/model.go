// Package dgbdt implements the deterministic gradient-boosted decision tree
// artifact: its canonical encoding, structural validation and integer-only
// evaluation.
package dgbdt

// FormatVersion is the artifact format this build reads and writes.
const FormatVersion = 1

// Structural limits enforced at load.
const (
	MaxTrees        = 1 << 16
	MaxNodesPerTree = 1 << 16
)

// NodeKind tags a node variant.
type NodeKind string

// Node variants.
const (
	KindInternal NodeKind = "internal"
	KindLeaf     NodeKind = "leaf"
)

// Model is a D-GBDT ensemble. Trees are evaluated in stored order.
type Model struct {
	Version   int      `json:"version"`
	Scale     int64    `json:"scale"`
	Features  []string `json:"features"`
	BaseScore int64    `json:"base_score"`
	MinScore  int64    `json:"min_score"`
	MaxScore  int64    `json:"max_score"`
	Trees     []Tree   `json:"trees"`
}

// Tree is a binary decision tree rooted at node 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is either an internal split or a leaf. Only the fields of its kind
// are set.
type Node struct {
	Kind      NodeKind `json:"kind"`
	Feature   *int     `json:"feature,omitempty"`
	Threshold *int64   `json:"threshold,omitempty"`
	Left      *int     `json:"left,omitempty"`
	Right     *int     `json:"right,omitempty"`
	Value     *int64   `json:"value,omitempty"`
}

// Leaf builds a leaf node.
func Leaf(value int64) Node {
	return Node{Kind: KindLeaf, Value: &value}
}

// Split builds an internal node: features[feature] <= threshold goes left.
func Split(feature int, threshold int64, left, right int) Node {
	return Node{Kind: KindInternal, Feature: &feature, Threshold: &threshold, Left: &left, Right: &right}
}

// NodeCount returns the total number of nodes in the ensemble.
func (m *Model) NodeCount() int {
	n := 0
	for _, t := range m.Trees {
		n += len(t.Nodes)
	}
	return n
}
