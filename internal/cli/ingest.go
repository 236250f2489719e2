package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"recipes/internal/adapter/corpus"
	"recipes/internal/adapter/fs"
	"recipes/internal/adapter/store"
	"recipes/internal/usecase"
)

var (
	ingestReset      bool
	ingestMaxRecipes int
	ingestEncoding   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [csv-or-dir...]",
	Short: "Load raw recipe CSV exports into the record store",
	Long: `Read recipe CSV files, clean ingredient and direction text, drop rows
outside the configured ingredient and direction bounds and append the rest
to the record store.

Examples:
  recipes ingest RecipeNLG_dataset.csv
  recipes ingest data/ --reset --max-recipes 100000`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "clear the store before ingesting")
	ingestCmd.Flags().IntVar(&ingestMaxRecipes, "max-recipes", -1, "stop after this many recipes (0 = unlimited, default from config)")
	ingestCmd.Flags().StringVar(&ingestEncoding, "encoding", "", "input encoding: auto, utf-8 or latin-1 (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if ingestMaxRecipes >= 0 {
		cfg.Corpus.MaxRecipes = ingestMaxRecipes
	}
	if ingestEncoding != "" {
		cfg.Corpus.Encoding = ingestEncoding
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{GetRootDir()}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	migrationResult, err := store.CheckMigration(st, cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}
	if migrationResult.NeedsRebuild || ingestReset {
		if migrationResult.NeedsRebuild {
			fmt.Printf("Store rebuild required: %s\n", migrationResult.Reason)
		}
		fmt.Println("Clearing existing records...")
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
	} else if migrationResult.NeedsMigration {
		fmt.Printf("Running schema migration: %s\n", migrationResult.Reason)
		if err := store.Migrate(st, cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	walker := fs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes)
	opts := corpus.Options{
		Filter: corpus.Filter{
			MinIngredients:    cfg.Corpus.MinIngredients,
			MaxIngredients:    cfg.Corpus.MaxIngredients,
			MinDirectionWords: cfg.Corpus.MinDirectionWords,
		},
		ChunkSize: cfg.Corpus.ChunkSize,
		Encoding:  cfg.Corpus.Encoding,
	}
	ingestUC := usecase.NewIngestUseCase(st, walker, opts, cfg.Corpus.MaxRecipes)

	result, err := ingestUC.Ingest(cmd.Context(), paths, newProgress("Ingesting", true))
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if err := store.Migrate(st, cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Files read:     %d\n", result.Files)
	fmt.Printf("  Rows read:      %d\n", result.Rows)
	fmt.Printf("  Recipes stored: %d\n", result.Inserted)
	fmt.Printf("  Rows skipped:   %d\n", result.Skipped)
	if len(result.SkipReasons) > 0 {
		reasons := make([]string, 0, len(result.SkipReasons))
		for r := range result.SkipReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Printf("    - %s: %d\n", r, result.SkipReasons[r])
		}
	}
	if result.Truncated {
		fmt.Printf("  Stopped at the %d recipe limit\n", cfg.Corpus.MaxRecipes)
	}
	fmt.Printf("  Took:           %s\n", formatDuration(result.Duration))
	fmt.Printf("\nRecords stored at: %s\n", storePath())
	return nil
}
