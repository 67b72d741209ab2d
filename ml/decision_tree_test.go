package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := []FeatureVector{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	labels := []int{0, 0, 1, 1}

	tree := newDecisionTree(2, 2, 0, nil)
	require.NoError(t, tree.train(features, labels, []int{0, 1, 2, 3}))

	label, err := tree.predictIndex(FeatureVector{0.15, 0.15})
	require.NoError(t, err)
	assert.Equal(t, 0, label)

	label, err = tree.predictIndex(FeatureVector{0.85, 0.85})
	require.NoError(t, err)
	assert.Equal(t, 1, label)

	require.NoError(t, tree.validate(2))
}

func TestDecisionTreeSubtreeIndicesAreAbsolute(t *testing.T) {
	// Three classes along one axis force a split below the root.
	features := []FeatureVector{{1}, {2}, {5}, {6}, {9}, {10}}
	labels := []int{0, 0, 1, 1, 2, 2}

	tree := newDecisionTree(3, 0, 0, nil)
	require.NoError(t, tree.train(features, labels, []int{0, 1, 2, 3, 4, 5}))
	require.NoError(t, tree.validate(3))

	for i, f := range features {
		label, err := tree.predictIndex(f)
		require.NoError(t, err)
		assert.Equal(t, labels[i], label, "row %d", i)
	}
}

func TestDecisionTreeMaxDepth(t *testing.T) {
	features := []FeatureVector{{1}, {2}, {5}, {6}, {9}, {10}}
	labels := []int{0, 0, 1, 1, 2, 2}

	tree := newDecisionTree(3, 1, 0, nil)
	require.NoError(t, tree.train(features, labels, []int{0, 1, 2, 3, 4, 5}))
	assert.Len(t, tree.nodes, 3)
}

func TestDecisionTreeUntrained(t *testing.T) {
	tree := newDecisionTree(2, 0, 0, nil)
	_, err := tree.predictIndex(FeatureVector{})
	assert.Error(t, err)
}

func TestDecisionTreeValidateRejectsCycles(t *testing.T) {
	tree := &DecisionTree{nodes: []TreeNode{
		{FeatureIdx: 0, Threshold: 1, LeftChild: 0, RightChild: 1},
		leafNode(0),
	}}
	assert.Error(t, tree.validate(1))

	tree = &DecisionTree{nodes: []TreeNode{leafNode(3)}}
	assert.Error(t, tree.validate(2))
}

func TestWeightedGini(t *testing.T) {
	parent := []int{2, 2}
	assert.InDelta(t, 0.0, weightedGini([]int{2, 0}, parent, 2, 4), 1e-12)
	assert.InDelta(t, 0.5, weightedGini([]int{1, 1}, parent, 2, 4), 1e-12)
}
