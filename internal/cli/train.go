package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"recipes/internal/adapter/bundle"
	"recipes/internal/adapter/encoder"
	"recipes/internal/usecase"
)

var (
	trainStrategy  string
	trainNeighbors int
	trainBatchSize int
	trainSeed      int64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Encode stored recipes and build the model bundle",
	Long: `Scan the record store, fit the ingredient encoder, encode every recipe and
build a brute-force cosine index. Encoder, index and id mapping are written
as one bundle.

Examples:
  recipes train
  recipes train --strategy tfidf --neighbors 20`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringVar(&trainStrategy, "strategy", "", "encoder strategy: hashing or tfidf (default from config)")
	trainCmd.Flags().IntVar(&trainNeighbors, "neighbors", 0, "default neighbour count of the index (default from config)")
	trainCmd.Flags().IntVar(&trainBatchSize, "batch-size", 0, "recipes encoded per batch (default from config)")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "seed for the encoder fitting sample (default from config)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if trainStrategy != "" {
		cfg.Encoder.Strategy = trainStrategy
	}
	if trainNeighbors > 0 {
		cfg.Train.NeighborCount = trainNeighbors
	}
	if trainBatchSize > 0 {
		cfg.Train.BatchSize = trainBatchSize
	}
	if cmd.Flags().Changed("seed") {
		cfg.Train.Seed = trainSeed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	trainUC := usecase.NewTrainUseCase(st, usecase.TrainOptions{
		Encoder: encoder.Options{
			Strategy:    cfg.Encoder.Strategy,
			Dimension:   cfg.Encoder.Dimension,
			MaxFeatures: cfg.Encoder.MaxFeatures,
			StopWords:   cfg.Encoder.StopWords,
			Norm:        cfg.Encoder.Norm,
		},
		SampleSize:    cfg.Encoder.SampleSize,
		BatchSize:     cfg.Train.BatchSize,
		NeighborCount: cfg.Train.NeighborCount,
		Workers:       cfg.Train.Workers,
		Seed:          cfg.Train.Seed,
	})

	b, result, err := trainUC.Train(cmd.Context(), newProgress("Encoding", false))
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	path := bundlePath()
	if err := bundle.Save(path, b); err != nil {
		return fmt.Errorf("failed to save bundle: %w", err)
	}

	fmt.Printf("\nTraining complete:\n")
	fmt.Printf("  Bundle:     %s\n", b.ID)
	fmt.Printf("  Encoder:    %s (dimension %d)\n", b.Encoder.Kind, result.Dimension)
	fmt.Printf("  Recipes:    %d\n", result.Recipes)
	if result.Sampled > 0 {
		fmt.Printf("  Fit sample: %d\n", result.Sampled)
	}
	fmt.Printf("  Non-zeros:  %d\n", result.NonZero)
	fmt.Printf("  Took:       %s\n", formatDuration(result.Duration))
	fmt.Printf("\nBundle stored at: %s\n", path)
	return nil
}
