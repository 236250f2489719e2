package knn

import (
	"fmt"

	"recipes/internal/domain"
)

// State is the persisted form of a brute-force index.
type State struct {
	Metric        string          `json:"metric"`
	Algorithm     string          `json:"algorithm"`
	NeighborCount int             `json:"neighbor_count"`
	Dimension     int             `json:"dimension"`
	Rows          []domain.Vector `json:"rows"`
}

func (b *BruteForce) State() State {
	return State{
		Metric:        MetricCosine,
		Algorithm:     AlgorithmBrute,
		NeighborCount: b.neighborCount,
		Dimension:     b.dim,
		Rows:          b.rows,
	}
}

// FromState rebuilds an index from persisted rows.
func FromState(s State, workers int) (*BruteForce, error) {
	if s.Metric != MetricCosine || s.Algorithm != AlgorithmBrute {
		return nil, fmt.Errorf("%w: unsupported index %s/%s", domain.ErrBundleCorrupt, s.Metric, s.Algorithm)
	}
	idx, err := Build(s.Rows, Options{NeighborCount: s.NeighborCount, Workers: workers})
	if err != nil {
		return nil, err
	}
	if idx.dim != s.Dimension {
		return nil, fmt.Errorf("%w: rows have dimension %d, state records %d", domain.ErrDimensionMismatch, idx.dim, s.Dimension)
	}
	return idx, nil
}
