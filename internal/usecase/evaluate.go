package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"recipes/internal/adapter/metrics"
	"recipes/internal/domain"
	"recipes/internal/logging"
	"recipes/internal/port"
)

// EvalParams controls one evaluation run.
type EvalParams struct {
	K            int
	TestFraction float64
	SampleSize   int
	Seed         int64
}

// EvaluateUseCase measures how well a model retrieves held-out recipes
// when queried with their own ingredient list.
type EvaluateUseCase struct {
	store port.RecordStore
	model *Model
}

func NewEvaluateUseCase(store port.RecordStore, model *Model) *EvaluateUseCase {
	return &EvaluateUseCase{store: store, model: model}
}

// Evaluate splits the store's ids with a seeded permutation, samples at
// most SampleSize test ids with the same generator and queries the model
// once per sampled recipe. Ids missing from the store count as queries
// that retrieved nothing relevant.
func (u *EvaluateUseCase) Evaluate(ctx context.Context, p EvalParams, progress ProgressFunc) (*domain.EvalReport, error) {
	start := time.Now()
	log := logging.Component("evaluate")

	if p.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, p.K)
	}
	if p.K > u.model.Index.Rows() {
		return nil, fmt.Errorf("%w: k=%d exceeds %d indexed recipes", domain.ErrInsufficientData, p.K, u.model.Index.Rows())
	}

	ids, err := u.store.IDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: record store is empty", domain.ErrInsufficientData)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	train, test, err := metrics.TrainTestSplit(rng, ids, p.TestFraction)
	if err != nil {
		return nil, err
	}
	sample := test
	if p.SampleSize > 0 && len(test) > p.SampleSize {
		sample, err = metrics.SampleWithoutReplacement(rng, test, p.SampleSize)
		if err != nil {
			return nil, err
		}
	}
	log.Info().Int("train", len(train)).Int("test", len(test)).Int("sampled", len(sample)).Int("k", p.K).Msg("evaluating")

	acc := metrics.NewAccumulator(p.K)
	missing := 0
	retrieved := make([]int64, 0, p.K)
	for i, id := range sample {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := u.store.Get(id)
		if errors.Is(err, domain.ErrRecordNotFound) {
			log.Debug().Int64("id", id).Msg("sampled recipe missing from store")
			acc.ObserveMiss()
			missing++
			report(progress, int64(i+1), int64(len(sample)), "evaluate")
			continue
		}
		if err != nil {
			return nil, err
		}

		neighbors, err := u.model.Neighbors(rec.Ingredients, p.K)
		if err != nil {
			return nil, fmt.Errorf("failed to query recipe %d: %w", id, err)
		}
		retrieved = retrieved[:0]
		for _, n := range neighbors {
			retrieved = append(retrieved, n.RecipeID)
		}
		acc.Observe(retrieved, id)
		report(progress, int64(i+1), int64(len(sample)), "evaluate")
	}

	r := &domain.EvalReport{
		K:         p.K,
		Precision: acc.Precision(),
		Recall:    acc.Recall(),
		MRR:       acc.MRR(),
		Coverage:  acc.Coverage(len(ids)),
		Sampled:   acc.Queries(),
		Missing:   missing,
		TestSize:  len(test),
		TrainSize: len(train),
		Universe:  len(ids),
		BundleID:  u.model.ID,
		Duration:  time.Since(start),
	}
	log.Info().
		Float64("precision", r.Precision).
		Float64("recall", r.Recall).
		Float64("mrr", r.MRR).
		Float64("coverage", r.Coverage).
		Int("missing", missing).
		Dur("duration", r.Duration).
		Msg("evaluation complete")
	return r, nil
}
