// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import (
	"math"
	"math/rand"
	"sort"
)

// Tree is a fitted CART tree stored as flat node arrays so that it encodes
// with gob. Node 0 is the root; Feature[i] < 0 marks a leaf.
type Tree struct {
	Feature   []int
	Threshold []float64
	Left      []int
	Right     []int
	Value     []float64
}

type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    int
}

type treeBuilder struct {
	x           [][]float64
	y           []float64
	params      treeParams
	rng         *rand.Rand
	tree        *Tree
	importances []float64
}

// growTree fits a tree on the rows in idx (duplicates allowed). Splits
// minimise the summed squared error of the children. For 0/1 targets that is
// half the weighted Gini impurity, so the same search serves classification;
// leaf values are then class-1 probabilities.
func growTree(x [][]float64, y []float64, idx []int, params treeParams, rng *rand.Rand) (*Tree, []float64) {
	b := &treeBuilder{
		x:           x,
		y:           y,
		params:      params,
		rng:         rng,
		tree:        &Tree{},
		importances: make([]float64, len(x[0])),
	}
	b.build(idx, 0)
	return b.tree, b.importances
}

func (b *treeBuilder) addNode() int {
	t := b.tree
	t.Feature = append(t.Feature, -1)
	t.Threshold = append(t.Threshold, 0)
	t.Left = append(t.Left, -1)
	t.Right = append(t.Right, -1)
	t.Value = append(t.Value, 0)
	return len(t.Feature) - 1
}

func (b *treeBuilder) build(idx []int, depth int) int {
	node := b.addNode()

	var sum, sumSq float64
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	b.tree.Value[node] = sum / n
	sse := sumSq - sum*sum/n

	if depth >= b.params.maxDepth || len(idx) < 2*b.params.minSamplesLeaf || sse <= 1e-12 {
		return node
	}

	feature, threshold, childSSE, ok := b.bestSplit(idx)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[feature] += sse - childSSE
	b.tree.Feature[node] = feature
	b.tree.Threshold[node] = threshold
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.tree.Left[node] = l
	b.tree.Right[node] = r
	return node
}

func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold, bestSSE float64, ok bool) {
	nFeatures := len(b.x[0])
	candidates := b.rng.Perm(nFeatures)
	if b.params.maxFeatures > 0 && b.params.maxFeatures < nFeatures {
		candidates = candidates[:b.params.maxFeatures]
	}

	bestSSE = math.Inf(1)
	sorted := make([]int, len(idx))
	minLeaf := b.params.minSamplesLeaf

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	n := len(idx)

	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[sorted[k]]
			leftSum += yi
			leftSq += yi * yi

			nl := k + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			cur, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if cur == next {
				continue
			}
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			s := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if s < bestSSE {
				bestSSE = s
				feature = f
				threshold = cur + (next-cur)/2
				ok = true
			}
		}
	}
	return feature, threshold, bestSSE, ok
}

// predict returns the leaf value reached by row.
func (t *Tree) predict(row []float64) float64 {
	node := 0
	for t.Feature[node] >= 0 {
		if row[t.Feature[node]] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	return t.Value[node]
}
