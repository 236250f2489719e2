package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"recipes/internal/adapter/store"
	"recipes/internal/usecase"
)

var importReset bool

var importCmd = &cobra.Command{
	Use:   "import-sqlite <recipes.db>",
	Short: "Copy recipes from a legacy SQLite database",
	Long: `Attach a recipes.db written by the earlier preprocessing pipeline through
DuckDB's sqlite_scanner extension and copy its recipes table into the record
store. Rows keep their order; ids are reassigned by the store.

Examples:
  recipes import-sqlite processed_data/recipes.db --reset`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importReset, "reset", false, "clear the store before importing")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	reader, err := store.NewSQLiteReader(args[0])
	if err != nil {
		return fmt.Errorf("failed to open legacy database: %w", err)
	}
	defer reader.Close()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if importReset {
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
	}

	importUC := usecase.NewImportUseCase(reader, st, cfg.Train.BatchSize)
	result, err := importUC.Import(cmd.Context(), newProgress("Importing", false))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if err := store.Migrate(st, cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}

	fmt.Printf("\nImport complete:\n")
	fmt.Printf("  Rows read:      %d\n", result.Read)
	fmt.Printf("  Recipes stored: %d\n", result.Inserted)
	fmt.Printf("  Rows skipped:   %d (no ingredients)\n", result.Skipped)
	fmt.Printf("  Took:           %s\n", formatDuration(result.Duration))
	return nil
}
