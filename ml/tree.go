package ml

import (
	"errors"
	"math"
	"math/rand"
)

// regressionTree is a single CART-style regression tree stored as a flat
// node array so the whole tree serializes as one JSON value.
type regressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	maxFeatures     int
}

func (t *regressionTree) fit(features [][]float64, targets []float64, cfg treeConfig, rnd *rand.Rand) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if cfg.maxDepth <= 0 {
		cfg.maxDepth = 10
	}
	if cfg.minSamplesSplit < 2 {
		cfg.minSamplesSplit = 2
	}

	t.Nodes = buildRegressionNode(features, targets, 0, cfg, rnd)
	return nil
}

func (t *regressionTree) predict(features []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, errors.New("tree not fitted")
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func buildRegressionNode(features [][]float64, targets []float64, depth int, cfg treeConfig, rnd *rand.Rand) []treeNode {
	value := mean(targets)
	if depth >= cfg.maxDepth || len(targets) < cfg.minSamplesSplit || variance(targets) == 0 {
		return []treeNode{leafNode(value)}
	}

	bestFeature, threshold, ok := findBestRegressionSplit(features, targets, cfg.maxFeatures, rnd)
	if !ok {
		return []treeNode{leafNode(value)}
	}

	leftF, leftT, rightF, rightT := partition(features, targets, bestFeature, threshold)
	if len(leftT) == 0 || len(rightT) == 0 {
		return []treeNode{leafNode(value)}
	}

	leftNodes := buildRegressionNode(leftF, leftT, depth+1, cfg, rnd)
	rightNodes := buildRegressionNode(rightF, rightT, depth+1, cfg, rnd)

	root := treeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		Value:      value,
	}

	// Subtree child indices are relative to the subtree's own array and
	// must be rebased when spliced into the parent array.
	nodes := make([]treeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	for _, n := range leftNodes {
		nodes = append(nodes, rebaseNode(n, 1))
	}
	for _, n := range rightNodes {
		nodes = append(nodes, rebaseNode(n, 1+len(leftNodes)))
	}
	return nodes
}

func rebaseNode(n treeNode, offset int) treeNode {
	if !n.IsLeaf {
		n.LeftChild += offset
		n.RightChild += offset
	}
	return n
}

func leafNode(value float64) treeNode {
	return treeNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: value, IsLeaf: true}
}

// findBestRegressionSplit evaluates a median threshold per candidate
// feature and picks the split with the lowest weighted target variance.
// When maxFeatures is positive, only a random subset of features is
// considered, which decorrelates trees inside a forest.
func findBestRegressionSplit(features [][]float64, targets []float64, maxFeatures int, rnd *rand.Rand) (int, float64, bool) {
	featureCount := len(features[0])
	candidates := featureIndices(featureCount, maxFeatures, rnd)

	bestFeature := -1
	bestThreshold := 0.0
	bestScore := math.MaxFloat64

	for _, featureIdx := range candidates {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)

		var leftT, rightT []float64
		for i, row := range features {
			if row[featureIdx] <= threshold {
				leftT = append(leftT, targets[i])
			} else {
				rightT = append(rightT, targets[i])
			}
		}
		if len(leftT) == 0 || len(rightT) == 0 {
			continue
		}
		score := weightedVariance(leftT, rightT)
		if score < bestScore {
			bestScore = score
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func featureIndices(featureCount, maxFeatures int, rnd *rand.Rand) []int {
	if maxFeatures <= 0 || maxFeatures >= featureCount || rnd == nil {
		all := make([]int, featureCount)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rnd.Perm(featureCount)[:maxFeatures]
}

func partition(features [][]float64, targets []float64, featureIdx int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	var leftF, rightF [][]float64
	var leftT, rightT []float64
	for i, row := range features {
		if row[featureIdx] <= threshold {
			leftF = append(leftF, row)
			leftT = append(leftT, targets[i])
		} else {
			rightF = append(rightF, row)
			rightT = append(rightT, targets[i])
		}
	}
	return leftF, leftT, rightF, rightT
}

func weightedVariance(left, right []float64) float64 {
	lw := float64(len(left))
	rw := float64(len(right))
	total := lw + rw
	return (lw/total)*variance(left) + (rw/total)*variance(right)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sortFloats(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func sortFloats(values []float64) {
	for i := 1; i < len(values); i++ {
		j := i
		for j > 0 && values[j-1] > values[j] {
			values[j-1], values[j] = values[j], values[j-1]
			j--
		}
	}
}
