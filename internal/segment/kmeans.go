// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package segment

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"
)

type kmeansParams struct {
	k       int
	nInit   int
	maxIter int
	seed    int64
}

// clustering is one fitted k-means solution.
type clustering struct {
	centroids [][]float64
	labels    []int
	inertia   float64
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// nearest returns the index of the closest centroid, ties to the lowest.
func nearest(point []float64, centroids [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for j, c := range centroids {
		if d := sqDist(point, c); d < bestD {
			best, bestD = j, d
		}
	}
	return best, bestD
}

// kmeans runs nInit seeded restarts and keeps the lowest inertia. A restart
// that fills every cluster always beats one that leaves a cluster empty.
func kmeans(x [][]float64, p kmeansParams) clustering {
	best := clustering{inertia: math.Inf(1)}
	bestFull := false
	for run := 0; run < p.nInit; run++ {
		rng := rand.New(rand.NewSource(p.seed + int64(run))) //nolint:gosec // reproducible seeding
		c := lloyd(x, seedCentroids(x, p.k, rng), p.maxIter)
		full := nonEmpty(c.labels, p.k)
		if (full && !bestFull) || (full == bestFull && c.inertia < best.inertia) {
			best, bestFull = c, full
		}
	}
	return best
}

// seedCentroids picks k starting centroids with k-means++.
func seedCentroids(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(x)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), x[rng.Intn(n)]...))

	d2 := make([]float64, n)
	for i := range d2 {
		d2[i] = math.Inf(1)
	}
	for len(centroids) < k {
		last := centroids[len(centroids)-1]
		var total float64
		for i, point := range x {
			d2[i] = math.Min(d2[i], sqDist(point, last))
			total += d2[i]
		}

		next := rng.Intn(n)
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range d2 {
				r -= d
				if r < 0 {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), x[next]...))
	}
	return centroids
}

// lloyd iterates assignment and update until no label changes or maxIter
// is reached.
func lloyd(x [][]float64, centroids [][]float64, maxIter int) clustering {
	labels := make([]int, len(x))
	for i := range labels {
		labels[i] = -1
	}
	for iter := 0; iter < maxIter; iter++ {
		if !assign(x, centroids, labels) {
			break
		}
		updateCentroids(x, centroids, labels)
	}
	assign(x, centroids, labels)

	var inertia float64
	for i, point := range x {
		inertia += sqDist(point, centroids[labels[i]])
	}
	return clustering{centroids: centroids, labels: labels, inertia: inertia}
}

// assign labels every point with its nearest centroid and reports whether
// any label changed.
func assign(x [][]float64, centroids [][]float64, labels []int) bool {
	changed := false
	for i, point := range x {
		j, _ := nearest(point, centroids)
		if labels[i] != j {
			labels[i] = j
			changed = true
		}
	}
	return changed
}

// updateCentroids moves each centroid to the mean of its points. An empty
// cluster takes over the point farthest from its current centroid.
func updateCentroids(x [][]float64, centroids [][]float64, labels []int) {
	k, dim := len(centroids), len(x[0])
	sums := make([][]float64, k)
	for j := range sums {
		sums[j] = make([]float64, dim)
	}
	counts := make([]int, k)
	for i, point := range x {
		floats.Add(sums[labels[i]], point)
		counts[labels[i]]++
	}

	for j := range centroids {
		if counts[j] == 0 {
			continue
		}
		floats.ScaleTo(centroids[j], 1/float64(counts[j]), sums[j])
	}

	for j := range centroids {
		if counts[j] > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, point := range x {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := sqDist(point, centroids[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			continue
		}
		counts[labels[far]]--
		labels[far] = j
		counts[j] = 1
		copy(centroids[j], x[far])
	}
}

// silhouette returns the mean silhouette coefficient of the points in idx,
// measured against the other points in idx. A point alone in its cluster
// scores zero.
func silhouette(x [][]float64, labels []int, k int, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	counts := make([]int, k)
	for _, i := range idx {
		counts[labels[i]]++
	}

	sums := make([]float64, k)
	var total float64
	for _, i := range idx {
		own := labels[i]
		if counts[own] < 2 {
			continue
		}
		for c := range sums {
			sums[c] = 0
		}
		for _, j := range idx {
			if j != i {
				sums[labels[j]] += floats.Distance(x[i], x[j], 2)
			}
		}

		a := sums[own] / float64(counts[own]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c != own && counts[c] > 0 {
				b = math.Min(b, sums[c]/float64(counts[c]))
			}
		}
		if math.IsInf(b, 1) {
			continue
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(len(idx))
}

// sampleIndices returns every index when size is 0 or at least n, otherwise
// a seeded random subset of the given size.
func sampleIndices(n, size int, seed int64) []int {
	if size <= 0 || size >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible sampling
	return rng.Perm(n)[:size]
}

// sweepResult is the fitted clustering for one k.
type sweepResult struct {
	k          int
	clustering clustering
	silhouette float64
}

// sweep fits every k in ks on up to workers goroutines and returns the
// results in ks order.
func sweep(ctx context.Context, x [][]float64, ks []int, p kmeansParams, sample []int, workers int) ([]sweepResult, error) {
	results := make([]sweepResult, len(ks))
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(workers, len(ks)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				params := p
				params.k = ks[i]
				c := kmeans(x, params)
				results[i] = sweepResult{
					k:          ks[i],
					clustering: c,
					silhouette: silhouette(x, c.labels, ks[i], sample),
				}
			}
		}()
	}

	var err error
	for i := range ks {
		if err = ctx.Err(); err != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return results, nil
}

// complete drops the results that left any cluster without a point.
func complete(results []sweepResult) []sweepResult {
	out := results[:0:0]
	for _, r := range results {
		if nonEmpty(r.clustering.labels, r.k) {
			out = append(out, r)
		}
	}
	return out
}

// nonEmpty reports whether every label in 0..k-1 is used.
func nonEmpty(labels []int, k int) bool {
	used := make([]bool, k)
	left := k
	for _, l := range labels {
		if !used[l] {
			used[l] = true
			left--
		}
	}
	return left == 0
}

// distinctRows counts the rows of x that are not bit-for-bit equal.
func distinctRows(x [][]float64) int {
	seen := make(map[string]struct{}, len(x))
	var key []byte
	for _, row := range x {
		key = key[:0]
		for _, v := range row {
			key = binary.LittleEndian.AppendUint64(key, math.Float64bits(v))
		}
		seen[string(key)] = struct{}{}
	}
	return len(seen)
}

// best returns the result with the highest silhouette, ties to the smallest
// k. results must be in ascending k order.
func best(results []sweepResult) sweepResult {
	out := results[0]
	for _, r := range results[1:] {
		if r.silhouette > out.silhouette {
			out = r
		}
	}
	return out
}
