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

// ForestTask selects the forest's objective.
type ForestTask int

const (
	// Regression averages leaf means.
	Regression ForestTask = iota
	// Classification averages class-1 probabilities of 0/1 labels.
	Classification
)

// ForestConfig holds random forest hyperparameters.
type ForestConfig struct {
	Task           ForestTask
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	// MaxFeatures is the number of features tried per split. 0 selects
	// sqrt(p) for classification and p for regression.
	MaxFeatures int
	Seed        int64
	Workers     int
}

// RandomForest is a bagged ensemble of CART trees. It implements Estimator.
type RandomForest struct {
	Config      ForestConfig
	Trees       []Tree
	Importances []float64
}

// NewRandomForest returns an unfitted forest with defaults filled in.
func NewRandomForest(cfg ForestConfig) *RandomForest {
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 10
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &RandomForest{Config: cfg}
}

// Fit grows every tree on a bootstrap sample. Tree i draws from its own
// generator seeded with Seed+i, so results do not depend on scheduling.
func (f *RandomForest) Fit(x [][]float64, y []float64) error {
	n := len(x)
	if n == 0 || len(y) != n {
		return fmt.Errorf("%w: forest fit with %d rows and %d targets", ErrDegenerateData, n, len(y))
	}
	p := len(x[0])
	if p == 0 {
		return fmt.Errorf("%w: forest fit with no features", ErrDegenerateData)
	}

	maxFeatures := f.Config.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = p
		if f.Config.Task == Classification {
			maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))
		}
	}
	params := treeParams{
		maxDepth:       f.Config.MaxDepth,
		minSamplesLeaf: f.Config.MinSamplesLeaf,
		maxFeatures:    maxFeatures,
	}

	trees := make([]Tree, f.Config.Trees)
	perTree := make([][]float64, f.Config.Trees)

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
				rng := rand.New(rand.NewSource(f.Config.Seed + int64(t))) //nolint:gosec // reproducible bootstrap
				sample := make([]int, n)
				for i := range sample {
					sample[i] = rng.Intn(n)
				}
				tree, imp := growTree(x, y, sample, params, rng)
				trees[t] = *tree
				perTree[t] = imp
			}
		}()
	}
	for t := 0; t < f.Config.Trees; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	f.Trees = trees
	f.Importances = averageImportances(perTree, p)
	return nil
}

// averageImportances normalises each tree's impurity decrease to sum to one,
// averages across trees and renormalises.
func averageImportances(perTree [][]float64, p int) []float64 {
	out := make([]float64, p)
	for _, imp := range perTree {
		var total float64
		for _, v := range imp {
			total += v
		}
		if total <= 0 {
			continue
		}
		for j, v := range imp {
			out[j] += v / total
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// Predict averages the tree outputs for each row. For a classification forest
// the result is the class-1 probability.
func (f *RandomForest) Predict(x [][]float64) []float64 {
	out := make([]float64, len(x))
	if len(f.Trees) == 0 {
		return out
	}
	for i, row := range x {
		var sum float64
		for t := range f.Trees {
			sum += f.Trees[t].predict(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out
}

// FeatureImportances returns the normalised mean impurity decrease per
// design-matrix column.
func (f *RandomForest) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}
