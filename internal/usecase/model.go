package usecase

import (
	"fmt"

	"recipes/internal/adapter/bundle"
	"recipes/internal/domain"
	"recipes/internal/logging"
	"recipes/internal/port"
)

// Model is a loaded bundle ready to answer queries.
type Model struct {
	ID      string
	Encoder port.Encoder
	Index   port.NeighborIndex
	Mapping []int64
}

// LoadModel rebuilds the encoder and index of b. workers bounds the
// distance fan-out per query; zero means GOMAXPROCS.
func LoadModel(b *bundle.Bundle, workers int) (*Model, error) {
	enc, idx, err := b.Model(workers)
	if err != nil {
		return nil, err
	}
	if idx.Rows() != len(b.Mapping) {
		return nil, fmt.Errorf("%w: %d index rows but %d mapped ids", domain.ErrBundleCorrupt, idx.Rows(), len(b.Mapping))
	}
	return &Model{
		ID:      b.ID,
		Encoder: enc,
		Index:   idx,
		Mapping: b.Mapping,
	}, nil
}

// Neighbors encodes text and returns the k closest rows with their
// recipe ids filled in.
func (m *Model) Neighbors(text string, k int) ([]domain.Neighbor, error) {
	vec, err := m.Encoder.Transform(text)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if vec.IsZero() {
		log := logging.Component("model")
		log.Debug().Str("text", text).Msg("query has no known ingredients; all rows are equidistant")
	}
	neighbors, err := m.Index.Query(vec, k)
	if err != nil {
		return nil, err
	}
	for i := range neighbors {
		neighbors[i].RecipeID = m.Mapping[neighbors[i].Row]
	}
	return neighbors, nil
}
