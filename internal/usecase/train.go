package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"recipes/internal/adapter/bundle"
	"recipes/internal/adapter/encoder"
	"recipes/internal/adapter/knn"
	"recipes/internal/adapter/metrics"
	"recipes/internal/domain"
	"recipes/internal/logging"
	"recipes/internal/port"
)

// TrainOptions parameterizes one training run.
type TrainOptions struct {
	Encoder       encoder.Options
	SampleSize    int
	BatchSize     int
	NeighborCount int
	Workers       int
	Seed          int64
}

// TrainUseCase builds a model bundle from the record store.
type TrainUseCase struct {
	store port.RecordStore
	opts  TrainOptions
}

func NewTrainUseCase(store port.RecordStore, opts TrainOptions) *TrainUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10000
	}
	return &TrainUseCase{store: store, opts: opts}
}

// TrainResult summarizes a training run.
type TrainResult struct {
	Recipes   int
	Sampled   int
	Dimension int
	NonZero   int
	Duration  time.Duration
}

// Train scans the store once in ascending id order, fits the encoder on a
// seeded sample, encodes every recipe and indexes the vectors. The
// returned bundle maps index row i to the i-th scanned id.
func (u *TrainUseCase) Train(ctx context.Context, progress ProgressFunc) (*bundle.Bundle, *TrainResult, error) {
	start := time.Now()
	log := logging.Component("train")

	var mapping []int64
	var texts []string
	err := u.store.Scan(func(r domain.Recipe) error {
		mapping = append(mapping, r.ID)
		texts = append(texts, r.Ingredients)
		return ctx.Err()
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan store: %w", err)
	}
	if len(texts) == 0 {
		return nil, nil, fmt.Errorf("%w: record store is empty", domain.ErrInsufficientData)
	}
	log.Info().Int("records", len(texts)).Msg("store scanned")

	enc, err := encoder.New(u.opts.Encoder)
	if err != nil {
		return nil, nil, err
	}

	result := &TrainResult{Recipes: len(texts)}
	if enc.Kind() == encoder.KindTFIDF {
		sample := texts
		if u.opts.SampleSize > 0 && len(texts) > u.opts.SampleSize {
			rng := rand.New(rand.NewSource(u.opts.Seed))
			sample, err = metrics.SampleWithoutReplacement(rng, texts, u.opts.SampleSize)
			if err != nil {
				return nil, nil, err
			}
		}
		if err := enc.Fit(sample); err != nil {
			return nil, nil, fmt.Errorf("failed to fit encoder: %w", err)
		}
		result.Sampled = len(sample)
		log.Info().Int("sample", len(sample)).Int("vocabulary", enc.Dimension()).Msg("encoder fitted")
	}

	rows := make([]domain.Vector, 0, len(texts))
	total := int64(len(texts))
	for lo := 0; lo < len(texts); lo += u.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		hi := min(lo+u.opts.BatchSize, len(texts))
		batch, err := enc.TransformBatch(texts[lo:hi])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode batch at %d: %w", lo, err)
		}
		rows = append(rows, batch...)
		for _, v := range batch {
			result.NonZero += v.NNZ()
		}
		report(progress, int64(hi), total, "encode")
		log.Debug().Int("batch", lo/u.opts.BatchSize).Int("rows", hi).Msg("batch encoded")
	}

	idx, err := knn.Build(rows, knn.Options{NeighborCount: u.opts.NeighborCount, Workers: u.opts.Workers})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build index: %w", err)
	}

	b, err := bundle.New(enc, idx, mapping)
	if err != nil {
		return nil, nil, err
	}

	result.Dimension = enc.Dimension()
	result.Duration = time.Since(start)
	log.Info().
		Str("bundle", b.ID).
		Str("encoder", enc.Kind()).
		Int("rows", idx.Rows()).
		Int("dimension", result.Dimension).
		Dur("duration", result.Duration).
		Msg("training complete")
	return b, result, nil
}
