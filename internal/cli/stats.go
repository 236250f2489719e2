package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recipes/internal/adapter/bundle"
	"recipes/internal/adapter/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record store and bundle statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := st.Stats()
	if err != nil {
		return fmt.Errorf("failed to read store stats: %w", err)
	}
	info, err := st.GetSchemaInfo()
	if err != nil {
		return fmt.Errorf("failed to read schema info: %w", err)
	}

	fmt.Printf("Record store (%s): %s\n", cfg.Store.Driver, storePath())
	fmt.Printf("  Recipes:        %d\n", s.Recipes)
	if s.Recipes > 0 {
		fmt.Printf("  Id range:       %d..%d\n", s.MinID, s.MaxID)
	}
	fmt.Printf("  Schema version: %d (current %d)\n", info.Version, store.CurrentSchemaVersion)

	path := bundlePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("\nNo model bundle at %s\n", path)
		return nil
	}
	b, err := bundle.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load bundle: %w", err)
	}
	fmt.Printf("\nModel bundle: %s\n", path)
	fmt.Printf("  Id:             %s\n", b.ID)
	fmt.Printf("  Created:        %s\n", b.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Encoder:        %s (dimension %d)\n", b.Encoder.Kind, b.Encoder.Dimension)
	fmt.Printf("  Index:          %s/%s, %d rows, %d default neighbours\n",
		b.Index.Metric, b.Index.Algorithm, len(b.Index.Rows), b.Index.NeighborCount)
	if len(b.Mapping) > 0 && int64(len(b.Mapping)) != int64(s.Recipes) {
		fmt.Printf("  Note: bundle indexes %d recipes, store holds %d. Re-run 'recipes train'.\n", len(b.Mapping), s.Recipes)
	}
	return nil
}
