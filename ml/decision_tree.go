package ml

import (
	"errors"
	"math"
	"sort"
)

type DecisionTree struct {
	maxDepth int
	nodes    []TreeNode
}

// TreeNode is one node of a tree stored in preorder: a split node is
// followed by its whole left subtree, then its right subtree.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Confidence float64 `json:"confidence"`
	IsLeaf     bool    `json:"is_leaf"`
}

func NewDecisionTree(maxDepth int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return &DecisionTree{maxDepth: maxDepth}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if dt.maxDepth <= 0 {
		dt.maxDepth = 3
	}
	dt.nodes = dt.buildNode(features, labels, 0)
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if len(dt.nodes) == 0 {
		return 0, 0, ErrModelNotTrained
	}
	idx := 0
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, node.Confidence, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, 0, errors.New("invalid tree state")
		}
	}
	return 0, 0, errors.New("tree contains a cycle")
}

func (dt *DecisionTree) Nodes() []TreeNode {
	return append([]TreeNode(nil), dt.nodes...)
}

func (dt *DecisionTree) SetNodes(nodes []TreeNode) {
	dt.nodes = append([]TreeNode(nil), nodes...)
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, depth int) []TreeNode {
	label, share := majorityLabel(labels)
	leaf := []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: label,
		Confidence: share,
		IsLeaf:     true,
	}}
	if depth >= dt.maxDepth || isPure(labels) {
		return leaf
	}

	bestFeature, threshold, ok := findBestSplit(features, labels)
	if !ok {
		return leaf
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf
	}

	leftNodes := dt.buildNode(leftFeatures, leftLabels, depth+1)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, depth+1)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		ClassLabel: label,
		Confidence: share,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, offsetNodes(leftNodes, 1)...)
	nodes = append(nodes, offsetNodes(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// offsetNodes shifts child indexes of a subtree that is being placed at
// position offset of its parent's slice.
func offsetNodes(nodes []TreeNode, offset int) []TreeNode {
	shifted := make([]TreeNode, len(nodes))
	for i, node := range nodes {
		if !node.IsLeaf {
			node.LeftChild += offset
			node.RightChild += offset
		}
		shifted[i] = node
	}
	return shifted
}

// findBestSplit sweeps each feature in sorted order, moving one row at a
// time from the right side to the left, and scores every boundary between
// distinct values by weighted Gini impurity. The threshold is the midpoint
// of the boundary.
func findBestSplit(features [][]float64, labels []int) (int, float64, bool) {
	n := len(features)
	total := countLabels(labels)
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	order := make([]int, n)
	for featureIdx := 0; featureIdx < len(features[0]); featureIdx++ {
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			return features[order[a]][featureIdx] < features[order[b]][featureIdx]
		})

		left := make(map[int]int, len(total))
		for k := 0; k < n-1; k++ {
			row := order[k]
			left[labels[row]]++
			value := features[row][featureIdx]
			next := features[order[k+1]][featureIdx]
			if value == next {
				continue
			}
			leftSize := k + 1
			rightSize := n - leftSize
			impurity := (float64(leftSize)*giniLeft(left, leftSize) +
				float64(rightSize)*giniRight(total, left, rightSize)) / float64(n)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = (value + next) / 2
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func countLabels(labels []int) map[int]int {
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	return counts
}

func giniLeft(counts map[int]int, size int) float64 {
	impurity := 1.0
	for _, count := range counts {
		p := float64(count) / float64(size)
		impurity -= p * p
	}
	return impurity
}

func giniRight(total, left map[int]int, size int) float64 {
	impurity := 1.0
	for label, count := range total {
		p := float64(count-left[label]) / float64(size)
		impurity -= p * p
	}
	return impurity
}

// majorityLabel returns the most frequent label and its share of the
// slice. Ties go to the smaller label.
func majorityLabel(labels []int) (int, float64) {
	if len(labels) == 0 {
		return 0, 0
	}
	counts := countLabels(labels)
	bestLabel := 0
	bestCount := -1
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < bestLabel) {
			bestCount = count
			bestLabel = label
		}
	}
	return bestLabel, float64(bestCount) / float64(len(labels))
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
