// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TrainTestSplit partitions row indices 0..n-1 into train and held-out sets.
// The same n, fraction, seed and labels always produce the same partition.
// When labels is non-nil the split is stratified: each distinct label keeps
// its share in both partitions, with at least one row on each side for any
// label that has two or more rows. Both index slices are sorted ascending.
func TrainTestSplit(n int, testFraction float64, seed int64, labels []float64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 rows to split, got %d", ErrDegenerateData, n)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible split, not security sensitive

	if labels == nil {
		perm := rng.Perm(n)
		nTest := testCount(n, testFraction)
		test = append(test, perm[:nTest]...)
		train = append(train, perm[nTest:]...)
	} else {
		if len(labels) != n {
			return nil, nil, fmt.Errorf("labels has %d entries for %d rows", len(labels), n)
		}
		groups := make(map[float64][]int)
		for i, l := range labels {
			groups[l] = append(groups[l], i)
		}
		keys := make([]float64, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Float64s(keys)
		for _, k := range keys {
			idx := groups[k]
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
			nTest := testCount(len(idx), testFraction)
			if len(idx) == 1 {
				nTest = 0
			}
			test = append(test, idx[:nTest]...)
			train = append(train, idx[nTest:]...)
		}
	}

	if len(test) == 0 || len(train) == 0 {
		return nil, nil, fmt.Errorf("%w: split of %d rows left an empty partition", ErrDegenerateData, n)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// testCount rounds the held-out size up and keeps one row for training.
func testCount(n int, fraction float64) int {
	c := int(math.Ceil(float64(n) * fraction))
	if c < 1 {
		c = 1
	}
	if c > n-1 {
		c = n - 1
	}
	return c
}
