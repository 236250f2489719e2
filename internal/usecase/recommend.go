package usecase

import (
	"errors"
	"fmt"

	"recipes/internal/adapter/corpus"
	"recipes/internal/domain"
	"recipes/internal/logging"
	"recipes/internal/port"
)

// RecommendUseCase answers ad-hoc ingredient queries against a model.
type RecommendUseCase struct {
	store port.RecordStore
	model *Model
}

func NewRecommendUseCase(store port.RecordStore, model *Model) *RecommendUseCase {
	return &RecommendUseCase{store: store, model: model}
}

// Recommend returns the k recipes closest to ingredients. Recipes whose
// stored ingredient text equals the cleaned query are flagged as exact
// matches. k <= 0 uses the index's neighbour count.
func (u *RecommendUseCase) Recommend(ingredients string, k int) ([]domain.Recommendation, error) {
	neighbors, err := u.model.Neighbors(ingredients, k)
	if err != nil {
		return nil, err
	}

	exact := make(map[int64]bool)
	ids, err := u.store.FindByIngredients(corpus.Clean(ingredients))
	if err != nil {
		return nil, fmt.Errorf("failed to look up exact matches: %w", err)
	}
	for _, id := range ids {
		exact[id] = true
	}

	out := make([]domain.Recommendation, 0, len(neighbors))
	for _, n := range neighbors {
		rec, err := u.store.Get(n.RecipeID)
		if errors.Is(err, domain.ErrRecordNotFound) {
			log := logging.Component("recommend")
			log.Debug().Int64("id", n.RecipeID).Msg("indexed recipe missing from store")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Recommendation{
			Rank:       len(out) + 1,
			Recipe:     rec,
			Distance:   n.Distance,
			ExactMatch: exact[rec.ID],
		})
	}
	return out, nil
}
