// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
)

// eulerGamma is the Euler-Mascheroni constant used by the harmonic estimate.
const eulerGamma = 0.5772156649015329

// IsolationConfig holds isolation forest hyperparameters.
type IsolationConfig struct {
	Trees      int
	MaxSamples int
	Seed       int64
	Workers    int
}

// IsolationTree is a fitted isolation tree in flat node form. Size holds the
// number of training samples that reached each leaf.
type IsolationTree struct {
	Feature   []int
	Threshold []float64
	Left      []int
	Right     []int
	Size      []int
}

// IsolationForest scores points by how quickly random axis-aligned splits
// isolate them. It implements Estimator; Predict returns scores in [-1, 0)
// where lower means more anomalous.
type IsolationForest struct {
	Config      IsolationConfig
	SampleSize  int
	Trees       []IsolationTree
	Importances []float64
}

// NewIsolationForest returns an unfitted forest with defaults filled in.
func NewIsolationForest(cfg IsolationConfig) *IsolationForest {
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &IsolationForest{Config: cfg}
}

// Fit grows the trees on sub-samples drawn without replacement. The target
// slice is ignored.
func (f *IsolationForest) Fit(x [][]float64, _ []float64) error {
	n := len(x)
	if n < 2 {
		return fmt.Errorf("%w: isolation forest needs at least 2 rows, got %d", ErrDegenerateData, n)
	}
	p := len(x[0])
	if p == 0 {
		return fmt.Errorf("%w: isolation forest fit with no features", ErrDegenerateData)
	}

	psi := f.Config.MaxSamples
	if psi > n {
		psi = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))

	trees := make([]IsolationTree, f.Config.Trees)
	splits := make([][]float64, f.Config.Trees)

	var wg sync.WaitGroup
	jobs := make(chan int)
	workers := f.Config.Workers
	if workers > f.Config.Trees {
		workers = f.Config.Trees
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				rng := rand.New(rand.NewSource(f.Config.Seed + int64(t))) //nolint:gosec // reproducible sub-sampling
				sample := rng.Perm(n)[:psi]
				b := &isolationBuilder{x: x, rng: rng, limit: heightLimit, counts: make([]float64, p)}
				b.build(sample, 0)
				trees[t] = b.tree
				splits[t] = b.counts
			}
		}()
	}
	for t := 0; t < f.Config.Trees; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	f.SampleSize = psi
	f.Trees = trees
	f.Importances = averageImportances(splits, p)
	return nil
}

type isolationBuilder struct {
	x      [][]float64
	rng    *rand.Rand
	limit  int
	tree   IsolationTree
	counts []float64
}

func (b *isolationBuilder) leaf(size int) int {
	t := &b.tree
	t.Feature = append(t.Feature, -1)
	t.Threshold = append(t.Threshold, 0)
	t.Left = append(t.Left, -1)
	t.Right = append(t.Right, -1)
	t.Size = append(t.Size, size)
	return len(t.Feature) - 1
}

func (b *isolationBuilder) build(idx []int, depth int) int {
	node := b.leaf(len(idx))
	if depth >= b.limit || len(idx) <= 1 {
		return node
	}

	// Only features that still vary within the node can split it.
	p := len(b.x[0])
	lows := make([]float64, 0, p)
	highs := make([]float64, 0, p)
	cands := make([]int, 0, p)
	for j := 0; j < p; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			v := b.x[i][j]
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi > lo {
			cands = append(cands, j)
			lows = append(lows, lo)
			highs = append(highs, hi)
		}
	}
	if len(cands) == 0 {
		return node
	}

	c := b.rng.Intn(len(cands))
	feature := cands[c]
	split := lows[c] + b.rng.Float64()*(highs[c]-lows[c])

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.counts[feature]++
	b.tree.Feature[node] = feature
	b.tree.Threshold[node] = split
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.tree.Left[node] = l
	b.tree.Right[node] = r
	return node
}

// pathLength returns the depth at which row lands plus the expected
// remaining depth of the unbuilt subtree below that leaf.
func (t *IsolationTree) pathLength(row []float64) float64 {
	node, depth := 0, 0
	for t.Feature[node] >= 0 {
		if row[t.Feature[node]] < t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
		depth++
	}
	return float64(depth) + averagePathLength(t.Size[node])
}

// averagePathLength is the mean path length of an unsuccessful binary
// search tree lookup over n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	nf := float64(n)
	return 2*(math.Log(nf-1)+eulerGamma) - 2*(nf-1)/nf
}

// Predict returns the negated anomaly score -2^(-E[h(x)]/c(ψ)) for each row.
func (f *IsolationForest) Predict(x [][]float64) []float64 {
	out := make([]float64, len(x))
	if len(f.Trees) == 0 {
		return out
	}
	norm := averagePathLength(f.SampleSize)
	if norm == 0 {
		norm = 1
	}
	for i, row := range x {
		var sum float64
		for t := range f.Trees {
			sum += f.Trees[t].pathLength(row)
		}
		mean := sum / float64(len(f.Trees))
		out[i] = -math.Pow(2, -mean/norm)
	}
	return out
}

// FeatureImportances returns each feature's normalised share of splits.
func (f *IsolationForest) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}
