package port

import "recipes/internal/domain"

// NeighborIndex answers exact k-nearest-neighbour queries over stored rows.
type NeighborIndex interface {
	// Query returns k rows ordered by ascending distance, ties by row.
	Query(vec domain.Vector, k int) ([]domain.Neighbor, error)

	Rows() int

	Dimension() int
}

// Recommender resolves free-text ingredients into stored recipes.
type Recommender interface {
	Recommend(ingredients string, k int) ([]domain.Recommendation, error)
}
