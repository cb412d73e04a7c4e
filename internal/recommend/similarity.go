// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package recommend

import (
	"context"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/tomtom215/ordersight/internal/dataset"
)

// cell is one non-zero entry of the interaction table.
type cell struct {
	index int32
	count float64
}

// interactions is the sparse customer × product purchase-count table, kept
// in both orientations. Every list is sorted by index.
type interactions struct {
	products   []string
	categories []string
	customers  []string
	byProduct  [][]cell // product -> customers
	byCustomer [][]cell // customer -> products
	total      int
}

// buildInteractions counts purchases per (customer, product). A product's
// category is the first non-empty category seen for it.
func buildInteractions(records []dataset.Record) *interactions {
	productSet := make(map[string]string)
	customerSet := make(map[string]struct{})
	for i := range records {
		r := &records[i]
		if r.CustomerID == "" || r.ProductID == "" {
			continue
		}
		if cat, ok := productSet[r.ProductID]; !ok || cat == "" {
			productSet[r.ProductID] = r.ProductCategory
		}
		customerSet[r.CustomerID] = struct{}{}
	}

	in := &interactions{
		products:  make([]string, 0, len(productSet)),
		customers: make([]string, 0, len(customerSet)),
	}
	for id := range productSet {
		in.products = append(in.products, id)
	}
	for id := range customerSet {
		in.customers = append(in.customers, id)
	}
	sort.Strings(in.products)
	sort.Strings(in.customers)

	productIdx := indexOf(in.products)
	customerIdx := indexOf(in.customers)
	in.categories = make([]string, len(in.products))
	for i, id := range in.products {
		in.categories[i] = productSet[id]
	}

	counts := make([]map[int32]float64, len(in.customers))
	for i := range records {
		r := &records[i]
		if r.CustomerID == "" || r.ProductID == "" {
			continue
		}
		c := customerIdx[r.CustomerID]
		if counts[c] == nil {
			counts[c] = make(map[int32]float64)
		}
		counts[c][productIdx[r.ProductID]]++
		in.total++
	}

	in.byCustomer = make([][]cell, len(in.customers))
	in.byProduct = make([][]cell, len(in.products))
	for c, row := range counts {
		cells := make([]cell, 0, len(row))
		for p, n := range row {
			cells = append(cells, cell{index: p, count: n})
		}
		sort.Slice(cells, func(a, b int) bool { return cells[a].index < cells[b].index })
		in.byCustomer[c] = cells
	}
	// Customers are visited in index order, so byProduct lists come out sorted.
	for c, cells := range in.byCustomer {
		for _, pc := range cells {
			in.byProduct[pc.index] = append(in.byProduct[pc.index], cell{index: int32(c), count: pc.count})
		}
	}
	return in
}

func indexOf(ids []string) map[string]int32 {
	idx := make(map[string]int32, len(ids))
	for i, id := range ids {
		idx[id] = int32(i)
	}
	return idx
}

// productCounts returns the total purchases of each product.
func (in *interactions) productCounts() []float64 {
	out := make([]float64, len(in.products))
	for p, cells := range in.byProduct {
		for _, c := range cells {
			out[p] += c.count
		}
	}
	return out
}

// history returns each customer's products and purchase counts in
// ascending product order.
func (in *interactions) history() [][]Purchase {
	out := make([][]Purchase, len(in.customers))
	for c, cells := range in.byCustomer {
		row := make([]Purchase, len(cells))
		for i, pc := range cells {
			row[i] = Purchase{Product: pc.index, Count: pc.count}
		}
		out[c] = row
	}
	return out
}

// similarities computes the cosine similarity of every product pair that
// shares a customer, split across workers. Each product's dot products are
// accumulated over its customers in index order, which makes the result
// exactly symmetric.
func (in *interactions) similarities(ctx context.Context, workers int) ([][]Neighbor, error) {
	n := len(in.products)
	norms := make([]float64, n)
	for p, cells := range in.byProduct {
		v := make([]float64, len(cells))
		for i, c := range cells {
			v[i] = c.count
		}
		norms[p] = floats.Norm(v, 2)
	}

	if workers <= 0 {
		workers = 1
	}
	neighbors := make([][]Neighbor, n)

	var wg sync.WaitGroup
	chunkSize := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			dots := make([]float64, n)
			touched := make([]int32, 0, 64)
			for p := start; p < end; p++ {
				if ctx.Err() != nil {
					return
				}
				neighbors[p] = in.productNeighbors(int32(p), norms, dots, touched[:0])
			}
		}(start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return neighbors, nil
}

// productNeighbors scores p against every co-purchased product. dots must
// be all zero on entry and is left all zero.
func (in *interactions) productNeighbors(p int32, norms, dots []float64, touched []int32) []Neighbor {
	for _, pc := range in.byProduct[p] {
		for _, cc := range in.byCustomer[pc.index] {
			if cc.index == p {
				continue
			}
			if dots[cc.index] == 0 {
				touched = append(touched, cc.index)
			}
			dots[cc.index] += pc.count * cc.count
		}
	}

	out := make([]Neighbor, 0, len(touched))
	for _, q := range touched {
		if sim := dots[q] / (norms[p] * norms[q]); sim > 0 {
			out = append(out, Neighbor{Product: q, Score: sim})
		}
		dots[q] = 0
	}
	sortNeighbors(out)
	return out
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(a, b int) bool {
		if ns[a].Score != ns[b].Score {
			return ns[a].Score > ns[b].Score
		}
		return ns[a].Product < ns[b].Product
	})
}
