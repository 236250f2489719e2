package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"recipes/internal/adapter/corpus"
	"recipes/internal/domain"
	"recipes/internal/logging"
	"recipes/internal/port"
)

// IngestUseCase loads raw CSV exports into the record store.
type IngestUseCase struct {
	store      port.RecordStore
	walker     port.FileWalker
	opts       corpus.Options
	maxRecipes int
}

func NewIngestUseCase(store port.RecordStore, walker port.FileWalker, opts corpus.Options, maxRecipes int) *IngestUseCase {
	return &IngestUseCase{
		store:      store,
		walker:     walker,
		opts:       opts,
		maxRecipes: maxRecipes,
	}
}

// IngestResult contains the results of an ingestion run.
type IngestResult struct {
	Files       int
	Rows        int
	Inserted    int
	Skipped     int
	SkipReasons map[string]int
	Truncated   bool
	Duration    time.Duration
}

// countingReader tracks consumed bytes for progress reporting.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Ingest reads every CSV found under paths. Each chunk is inserted in one
// store call; rejected rows are counted and skipped. Once maxRecipes is
// reached the current chunk is finished and ingestion stops.
func (u *IngestUseCase) Ingest(ctx context.Context, paths []string, progress ProgressFunc) (*IngestResult, error) {
	start := time.Now()
	log := logging.Component("ingest")
	result := &IngestResult{SkipReasons: make(map[string]int)}

	var files []port.FileInfo
	for _, p := range paths {
		found, err := u.walker.Walk(p)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no csv files found", domain.ErrInsufficientData)
	}

	var total, done int64
	for _, f := range files {
		total += f.Size
	}

	for _, f := range files {
		if u.limitReached(result) {
			result.Truncated = true
			break
		}
		n, err := u.ingestFile(ctx, f, result, func(read int64) {
			report(progress, done+read, total, "ingest")
		})
		if err != nil {
			return nil, fmt.Errorf("failed to ingest %s: %w", f.Path, err)
		}
		done += n
		result.Files++
		log.Debug().Str("file", f.Path).Int("inserted", result.Inserted).Int("skipped", result.Skipped).Msg("file ingested")
	}

	result.Duration = time.Since(start)
	log.Info().
		Int("files", result.Files).
		Int("rows", result.Rows).
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("ingestion complete")
	return result, nil
}

func (u *IngestUseCase) limitReached(result *IngestResult) bool {
	return u.maxRecipes > 0 && result.Inserted >= u.maxRecipes
}

func (u *IngestUseCase) ingestFile(ctx context.Context, f port.FileInfo, result *IngestResult, progress func(int64)) (int64, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return 0, err
	}
	defer fh.Close()

	cr := &countingReader{r: fh}
	rd, err := corpus.NewReader(cr, u.opts)
	if err != nil {
		return 0, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return cr.n.Load(), err
		}

		chunk, err := rd.ReadChunk()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return cr.n.Load(), err
		}

		result.Rows += chunk.Rows
		result.Skipped += len(chunk.Rejected)
		for _, rej := range chunk.Rejected {
			result.SkipReasons[rej.Reason]++
		}
		if len(chunk.Recipes) > 0 {
			ids, err := u.store.Insert(chunk.Recipes)
			if err != nil {
				return cr.n.Load(), err
			}
			result.Inserted += len(ids)
		}
		progress(cr.n.Load())

		if u.limitReached(result) {
			result.Truncated = true
			log := logging.Component("ingest")
			log.Info().Int("max_recipes", u.maxRecipes).Msg("recipe limit reached")
			break
		}
	}
	return cr.n.Load(), nil
}
