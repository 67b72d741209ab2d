package ml

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
)

const minSamplesSplit = 2

// DecisionTree is a CART classifier over class indices. Nodes are stored in
// pre-order; child indices are absolute and always greater than the parent's.
type DecisionTree struct {
	nodes []TreeNode

	numClasses  int
	maxDepth    int
	maxFeatures int
	rng         *rand.Rand
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

// newDecisionTree creates an untrained tree. maxDepth <= 0 means unlimited;
// maxFeatures <= 0 or >= NumFeatures considers every feature at each split.
func newDecisionTree(numClasses, maxDepth, maxFeatures int, rng *rand.Rand) *DecisionTree {
	if maxFeatures <= 0 || maxFeatures > NumFeatures {
		maxFeatures = NumFeatures
	}
	return &DecisionTree{
		numClasses:  numClasses,
		maxDepth:    maxDepth,
		maxFeatures: maxFeatures,
		rng:         rng,
	}
}

// train fits the tree on the rows of features selected by samples. Samples
// may repeat, which is how bootstrap draws are expressed.
func (dt *DecisionTree) train(features []FeatureVector, labels []int, samples []int) error {
	if len(samples) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if dt.numClasses <= 0 {
		return errors.New("no classes")
	}
	dt.nodes = dt.buildNode(features, labels, samples, 0)
	return nil
}

func (dt *DecisionTree) predictIndex(features FeatureVector) (int, error) {
	if len(dt.nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= NumFeatures {
			return 0, errors.New("feature index out of range")
		}
		next := node.RightChild
		if features[node.FeatureIdx] <= node.Threshold {
			next = node.LeftChild
		}
		if next <= idx || next >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
		idx = next
	}
}

// validate checks a deserialized tree so that prediction always terminates.
func (dt *DecisionTree) validate(numClasses int) error {
	if len(dt.nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, node := range dt.nodes {
		if node.IsLeaf {
			if node.ClassLabel < 0 || node.ClassLabel >= numClasses {
				return fmt.Errorf("node %d: class %d out of range", i, node.ClassLabel)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= NumFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, node.FeatureIdx)
		}
		if math.IsNaN(node.Threshold) {
			return fmt.Errorf("node %d: threshold is NaN", i)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(dt.nodes) {
				return fmt.Errorf("node %d: child %d out of range", i, child)
			}
		}
	}
	return nil
}

func (dt *DecisionTree) buildNode(features []FeatureVector, labels []int, samples []int, depth int) []TreeNode {
	counts := classCounts(labels, samples, dt.numClasses)
	label := majorityLabel(counts)
	if len(samples) < minSamplesSplit || (dt.maxDepth > 0 && depth >= dt.maxDepth) || isPure(counts) {
		return []TreeNode{leafNode(label)}
	}

	bestFeature, threshold, ok := dt.findBestSplit(features, labels, samples, counts)
	if !ok {
		return []TreeNode{leafNode(label)}
	}

	left, right := splitSamples(features, samples, bestFeature, threshold)
	if len(left) == 0 || len(right) == 0 {
		return []TreeNode{leafNode(label)}
	}

	leftNodes := dt.buildNode(features, labels, left, depth+1)
	rightNodes := dt.buildNode(features, labels, right, depth+1)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		ClassLabel: label,
		IsLeaf:     false,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = appendShifted(nodes, leftNodes, 1)
	nodes = appendShifted(nodes, rightNodes, 1+len(leftNodes))
	return nodes
}

// appendShifted appends a subtree built at index 0 so that it starts at offset.
func appendShifted(dst, subtree []TreeNode, offset int) []TreeNode {
	for _, node := range subtree {
		if !node.IsLeaf {
			node.LeftChild += offset
			node.RightChild += offset
		}
		dst = append(dst, node)
	}
	return dst
}

// findBestSplit searches candidate features for the threshold with the lowest
// weighted Gini impurity. With a feature limit, features are visited in random
// order and constant features do not count against the limit.
func (dt *DecisionTree) findBestSplit(features []FeatureVector, labels []int, samples []int, parentCounts []int) (int, float64, bool) {
	order := dt.featureOrder()
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.Inf(1)

	sorted := make([]int, len(samples))
	leftCounts := make([]int, dt.numClasses)
	n := len(samples)
	examined := 0

	for _, featureIdx := range order {
		if examined >= dt.maxFeatures {
			break
		}
		copy(sorted, samples)
		slices.SortFunc(sorted, func(a, b int) int {
			return cmp.Compare(features[a][featureIdx], features[b][featureIdx])
		})
		if features[sorted[0]][featureIdx] == features[sorted[n-1]][featureIdx] {
			continue
		}
		examined++

		clear(leftCounts)
		for k := 1; k < n; k++ {
			leftCounts[labels[sorted[k-1]]]++
			lo := features[sorted[k-1]][featureIdx]
			hi := features[sorted[k]][featureIdx]
			if lo == hi {
				continue
			}
			impurity := weightedGini(leftCounts, parentCounts, k, n)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = midpoint(lo, hi)
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (dt *DecisionTree) featureOrder() []int {
	order := make([]int, NumFeatures)
	for i := range order {
		order[i] = i
	}
	if dt.maxFeatures < NumFeatures && dt.rng != nil {
		dt.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

func midpoint(lo, hi float64) float64 {
	mid := lo + (hi-lo)/2
	if mid >= hi {
		return lo
	}
	return mid
}

func splitSamples(features []FeatureVector, samples []int, featureIdx int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(samples))
	right := make([]int, 0, len(samples))
	for _, s := range samples {
		if features[s][featureIdx] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	return left, right
}

func classCounts(labels []int, samples []int, numClasses int) []int {
	counts := make([]int, numClasses)
	for _, s := range samples {
		counts[labels[s]]++
	}
	return counts
}

// weightedGini scores a split where leftCounts holds the first nLeft of n
// samples and parentCounts holds all of them.
func weightedGini(leftCounts, parentCounts []int, nLeft, n int) float64 {
	nRight := n - nLeft
	leftSq, rightSq := 0.0, 0.0
	for c := range parentCounts {
		l := float64(leftCounts[c])
		r := float64(parentCounts[c] - leftCounts[c])
		leftSq += l * l
		rightSq += r * r
	}
	leftGini := 1 - leftSq/float64(nLeft*nLeft)
	rightGini := 1 - rightSq/float64(nRight*nRight)
	return (float64(nLeft)*leftGini + float64(nRight)*rightGini) / float64(n)
}

// majorityLabel returns the most frequent class, preferring the lowest index
// on ties.
func majorityLabel(counts []int) int {
	best := 0
	for c, count := range counts {
		if count > counts[best] {
			best = c
		}
	}
	return best
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, count := range counts {
		if count > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func leafNode(label int) TreeNode {
	return TreeNode{
		FeatureIdx: -1,
		Threshold:  0,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: label,
		IsLeaf:     true,
	}
}
