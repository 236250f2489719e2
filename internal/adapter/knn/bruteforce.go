package knn

import (
	"container/heap"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"recipes/internal/domain"
)

const (
	MetricCosine   = "cosine"
	AlgorithmBrute = "brute"

	DefaultNeighborCount = 10

	// parallelThreshold is the row count below which distances are
	// computed on the calling goroutine.
	parallelThreshold = 4096
)

// Options configures a brute-force index.
type Options struct {
	NeighborCount int
	Workers       int
}

// BruteForce is an exact cosine nearest-neighbour index. Every query is
// compared against every stored row.
type BruteForce struct {
	rows          []domain.Vector
	norms         []float64
	dim           int
	neighborCount int
	workers       int
}

// Build indexes rows. All rows must share one dimension.
func Build(rows []domain.Vector, opts Options) (*BruteForce, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: cannot build an index without rows", domain.ErrInsufficientData)
	}
	dim := rows[0].Dim
	norms := make([]float64, len(rows))
	for i, r := range rows {
		if r.Dim != dim {
			return nil, fmt.Errorf("%w: row %d has dimension %d, expected %d", domain.ErrDimensionMismatch, i, r.Dim, dim)
		}
		norms[i] = r.SquaredNorm()
	}

	idx := &BruteForce{
		rows:          rows,
		norms:         norms,
		dim:           dim,
		neighborCount: opts.NeighborCount,
	}
	if idx.neighborCount <= 0 {
		idx.neighborCount = DefaultNeighborCount
	}
	idx.SetWorkers(opts.Workers)
	return idx, nil
}

// SetWorkers bounds the goroutines used per query; n <= 0 means GOMAXPROCS.
func (b *BruteForce) SetWorkers(n int) {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	b.workers = n
}

func (b *BruteForce) Rows() int {
	return len(b.rows)
}

func (b *BruteForce) Dimension() int {
	return b.dim
}

func (b *BruteForce) NeighborCount() int {
	return b.neighborCount
}

// Query returns the k nearest rows by ascending cosine distance, ties by
// ascending row index. k <= 0 uses the configured neighbour count.
func (b *BruteForce) Query(vec domain.Vector, k int) ([]domain.Neighbor, error) {
	if k <= 0 {
		k = b.neighborCount
	}
	if k > len(b.rows) {
		return nil, fmt.Errorf("%w: requested %d neighbours from an index of %d rows", domain.ErrInsufficientData, k, len(b.rows))
	}

	dists, err := b.Distances(vec)
	if err != nil {
		return nil, err
	}
	return topK(dists, k), nil
}

// Distances computes the cosine distance from vec to every row. Each row
// is written by exactly one goroutine, so the output does not depend on
// the worker count.
func (b *BruteForce) Distances(vec domain.Vector) ([]float64, error) {
	if vec.Dim != b.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrDimensionMismatch, vec.Dim, b.dim)
	}

	qnorm := vec.SquaredNorm()
	dists := make([]float64, len(b.rows))
	fill := func(start, end int) {
		for i := start; i < end; i++ {
			dists[i] = cosineDistance(domain.Dot(vec, b.rows[i]), qnorm, b.norms[i])
		}
	}

	if b.workers <= 1 || len(b.rows) < parallelThreshold {
		fill(0, len(b.rows))
		return dists, nil
	}

	var g errgroup.Group
	shard := (len(b.rows) + b.workers - 1) / b.workers
	for start := 0; start < len(b.rows); start += shard {
		start := start
		end := min(start+shard, len(b.rows))
		g.Go(func() error {
			fill(start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dists, nil
}

// topK selects the k smallest (distance, row) pairs with a bounded max-heap.
func topK(dists []float64, k int) []domain.Neighbor {
	h := make(candidateHeap, 0, k)
	for row, d := range dists {
		c := domain.Neighbor{Row: row, Distance: d}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if closer(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := []domain.Neighbor(h)
	sort.Slice(out, func(i, j int) bool { return closer(out[i], out[j]) })
	return out
}

func closer(a, b domain.Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Row < b.Row
}

// candidateHeap keeps the farthest retained candidate at the root.
type candidateHeap []domain.Neighbor

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(domain.Neighbor))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
