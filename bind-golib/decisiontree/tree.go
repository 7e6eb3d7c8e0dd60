// Package decisiontree trains and evaluates CART regression trees and random forests.
// Trees are stored flat: internal nodes in Nodes, leaf values in Outputs, so that a
// trained forest serializes to plain JSON.
package decisiontree

import "github.com/bindlab/bind/bind-golib/errors"

// Node sends x left when x[FeatureIndex] < Threshold and right otherwise. A child index
// points into Outputs when the matching IsLeaf flag is set and into Nodes otherwise.
type Node struct {
	FeatureIndex int     `json:"feature_index"`
	Threshold    float64 `json:"threshold"`
	LeftChild    int     `json:"left_child"`
	LeftIsLeaf   bool    `json:"left_is_leaf"`
	RightChild   int     `json:"right_child"`
	RightIsLeaf  bool    `json:"right_is_leaf"`
}

func (n Node) next(x []float64) (int, bool) {
	if x[n.FeatureIndex] < n.Threshold {
		return n.LeftChild, n.LeftIsLeaf
	}
	return n.RightChild, n.RightIsLeaf
}

// DecisionTree maps feature vectors of length FeatureSize to real numbers. Nodes[0] is the
// root; a tree with no nodes is a single leaf.
type DecisionTree struct {
	Nodes       []Node    `json:"nodes"`
	Outputs     []float64 `json:"outputs"`
	FeatureSize int       `json:"feature_size"`
	// Depth is the number of decisions on the longest root-to-leaf path
	Depth int `json:"depth"`
}

// Bin returns the index in Outputs of the leaf that x falls into
func (t *DecisionTree) Bin(x []float64) int {
	if len(x) != t.FeatureSize {
		panic("feature vector had incorrect length")
	}
	if len(t.Nodes) == 0 {
		if len(t.Outputs) != 1 {
			panic("tree not initialized")
		}
		return 0
	}

	node := 0
	for steps := 0; steps < t.Depth; steps++ {
		child, leaf := t.Nodes[node].next(x)
		if leaf {
			return child
		}
		node = child
	}
	panic("tree traversal did not terminate")
}

// Evaluate returns the output of the leaf that x falls into
func (t *DecisionTree) Evaluate(x []float64) float64 {
	return t.Outputs[t.Bin(x)]
}

// Validate checks that every child index is in range and every feature index fits FeatureSize
func (t *DecisionTree) Validate() error {
	if len(t.Nodes) == 0 {
		if len(t.Outputs) != 1 {
			return errors.Errorf("leaf-only tree has %d outputs", len(t.Outputs))
		}
		return nil
	}
	check := func(i, child int, leaf bool) error {
		switch {
		case leaf && (child < 0 || child >= len(t.Outputs)):
			return errors.Errorf("node %d: leaf %d out of range", i, child)
		case !leaf && (child <= i || child >= len(t.Nodes)):
			return errors.Errorf("node %d: child node %d out of range", i, child)
		}
		return nil
	}
	for i, n := range t.Nodes {
		if n.FeatureIndex < 0 || n.FeatureIndex >= t.FeatureSize {
			return errors.Errorf("node %d: feature %d out of range", i, n.FeatureIndex)
		}
		if err := check(i, n.LeftChild, n.LeftIsLeaf); err != nil {
			return err
		}
		if err := check(i, n.RightChild, n.RightIsLeaf); err != nil {
			return err
		}
	}
	return nil
}

// Ensemble sums the outputs of its trees
type Ensemble struct {
	Trees []DecisionTree `json:"trees"`
}

// Evaluate returns the sum of the tree outputs for x
func (e *Ensemble) Evaluate(x []float64) float64 {
	var sum float64
	for i := range e.Trees {
		sum += e.Trees[i].Evaluate(x)
	}
	return sum
}

// Validate validates every tree
func (e *Ensemble) Validate() error {
	for i := range e.Trees {
		if err := e.Trees[i].Validate(); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
	}
	return nil
}
