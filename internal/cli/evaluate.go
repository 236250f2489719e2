package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recipes/config"
	"recipes/internal/adapter/bundle"
	"recipes/internal/adapter/report"
	"recipes/internal/usecase"
)

var (
	evalK            int
	evalTestFraction float64
	evalSampleSize   int
	evalSeed         int64
	evalJSON         bool
	evalNoChart      bool
	evalPromFile     string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure retrieval quality on held-out recipes",
	Long: `Split the stored recipe ids into train and test sides with a seeded
permutation, sample test recipes and query the model with each one's own
ingredient list. Reports precision@k, recall@k, MRR and coverage.

Examples:
  recipes evaluate
  recipes evaluate -k 10 --sample-size 500 --json
  recipes evaluate --prom-file /var/lib/node_exporter/recipes.prom`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().IntVarP(&evalK, "top-k", "k", 0, "results per query (default from config)")
	evaluateCmd.Flags().Float64Var(&evalTestFraction, "test-fraction", 0, "share of ids held out (default from config)")
	evaluateCmd.Flags().IntVar(&evalSampleSize, "sample-size", 0, "maximum test recipes queried (default from config)")
	evaluateCmd.Flags().Int64Var(&evalSeed, "seed", 0, "seed for split and sampling (default from config)")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "output as JSON")
	evaluateCmd.Flags().BoolVar(&evalNoChart, "no-chart", false, "skip the metric bar chart")
	evaluateCmd.Flags().StringVar(&evalPromFile, "prom-file", "", "write metrics in Prometheus textfile format")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if evalK > 0 {
		cfg.Evaluate.K = evalK
	}
	if evalTestFraction != 0 {
		cfg.Evaluate.TestFraction = evalTestFraction
	}
	if evalSampleSize > 0 {
		cfg.Evaluate.SampleSize = evalSampleSize
	}
	if cmd.Flags().Changed("seed") {
		cfg.Evaluate.Seed = evalSeed
	}
	if evalPromFile != "" {
		cfg.Evaluate.PromFile = evalPromFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	model, err := loadModel()
	if err != nil {
		return err
	}

	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	evalUC := usecase.NewEvaluateUseCase(st, model)
	progress := newProgress("Evaluating", false)
	if evalJSON {
		progress = nil
	}
	r, err := evalUC.Evaluate(cmd.Context(), usecase.EvalParams{
		K:            cfg.Evaluate.K,
		TestFraction: cfg.Evaluate.TestFraction,
		SampleSize:   cfg.Evaluate.SampleSize,
		Seed:         cfg.Evaluate.Seed,
	}, progress)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if cfg.Evaluate.PromFile != "" {
		path := config.Resolve(GetRootDir(), cfg.Evaluate.PromFile)
		if err := report.WriteTextfile(path, *r); err != nil {
			return err
		}
	}

	if evalJSON {
		return report.WriteJSON(os.Stdout, *r)
	}

	fmt.Println()
	fmt.Println(report.Table(*r))
	if cfg.Evaluate.Chart && !evalNoChart {
		fmt.Println()
		fmt.Println(report.Chart(*r, 40))
	}
	return nil
}

// loadModel reads the configured bundle and rebuilds its model.
func loadModel() (*usecase.Model, error) {
	path := bundlePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no model bundle at %s. Run 'recipes train' first", path)
	}
	b, err := bundle.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}
	model, err := usecase.LoadModel(b, GetConfig().Train.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to restore model: %w", err)
	}
	return model, nil
}
