package usecase

import (
	"context"
	"fmt"
	"time"

	"recipes/internal/domain"
	"recipes/internal/logging"
	"recipes/internal/port"
)

// LegacySource streams recipes from a database written by the earlier
// preprocessing pipeline.
type LegacySource interface {
	CountRecords(ctx context.Context) (int64, error)
	ReadBatch(ctx context.Context, sinceID int64, limit int) ([]domain.Recipe, error)
}

// ImportUseCase copies a legacy recipes table into the record store.
type ImportUseCase struct {
	source    LegacySource
	store     port.RecordStore
	batchSize int
}

func NewImportUseCase(source LegacySource, store port.RecordStore, batchSize int) *ImportUseCase {
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &ImportUseCase{source: source, store: store, batchSize: batchSize}
}

type ImportResult struct {
	Read     int
	Inserted int
	Skipped  int
	Duration time.Duration
}

// Import copies rows in ascending legacy id order. The store assigns new
// ids; rows without ingredients are skipped.
func (u *ImportUseCase) Import(ctx context.Context, progress ProgressFunc) (*ImportResult, error) {
	start := time.Now()
	log := logging.Component("import")

	total, err := u.source.CountRecords(ctx)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	var since int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := u.source.ReadBatch(ctx, since, u.batchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		since = batch[len(batch)-1].ID
		result.Read += len(batch)

		keep := batch[:0]
		for _, r := range batch {
			if r.Ingredients == "" {
				result.Skipped++
				continue
			}
			r.ID = 0
			keep = append(keep, r)
		}
		if len(keep) > 0 {
			ids, err := u.store.Insert(keep)
			if err != nil {
				return nil, fmt.Errorf("failed to insert batch after legacy id %d: %w", since, err)
			}
			result.Inserted += len(ids)
		}
		report(progress, int64(result.Read), total, "import")
	}

	result.Duration = time.Since(start)
	log.Info().Int("read", result.Read).Int("inserted", result.Inserted).Int("skipped", result.Skipped).Dur("duration", result.Duration).Msg("import complete")
	return result, nil
}
