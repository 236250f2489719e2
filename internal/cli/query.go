package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"recipes/internal/adapter/cache"
	"recipes/internal/port"
	"recipes/internal/usecase"
)

var (
	queryText    []string
	queryTopK    int
	queryJSON    bool
	queryPreview int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Recommend recipes for a list of ingredients",
	Long: `Encode a comma separated ingredient list and print the closest stored
recipes. Repeat -q to run several queries against one loaded bundle.

Examples:
  recipes query -q "chicken, rice, garlic, onion"
  recipes query -q "beef, potato" -q "eggs, milk, flour" --top-k 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringArrayVarP(&queryText, "query", "q", nil, "ingredient list (required, repeatable)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().IntVar(&queryPreview, "preview", -1, "characters of directions to show (default from config)")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	topK := cfg.Query.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}
	preview := cfg.Query.PreviewChars
	if queryPreview >= 0 {
		preview = queryPreview
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

	var recommender port.Recommender = usecase.NewRecommendUseCase(st, model)
	if cfg.Query.CacheSize > 0 {
		qc := cache.NewQueryCache(cfg.Query.CacheSize, time.Duration(cfg.Query.CacheTTLSeconds)*time.Second)
		qc.SetBundle(model.ID)
		recommender = cache.NewCachedRecommender(recommender, qc)
	}

	type queryOutput struct {
		Query   string `json:"query"`
		Results any    `json:"results"`
	}
	var outputs []queryOutput

	for _, q := range queryText {
		recs, err := recommender.Recommend(q, topK)
		if err != nil {
			return fmt.Errorf("query %q failed: %w", q, err)
		}

		if queryJSON {
			outputs = append(outputs, queryOutput{Query: q, Results: recs})
			continue
		}

		fmt.Printf("Query: %q\n", q)
		fmt.Println(strings.Repeat("-", 60))
		if len(recs) == 0 {
			fmt.Println("No recipes found.")
		}
		for _, r := range recs {
			marker := ""
			if r.ExactMatch {
				marker = " [exact]"
			}
			fmt.Printf("%d. %s (distance %.4f)%s\n", r.Rank, r.Recipe.Title, r.Distance, marker)
			fmt.Printf("   Ingredients: %s\n", r.Recipe.Ingredients)
			if preview > 0 {
				fmt.Printf("   Directions:  %s\n", truncate(r.Recipe.Directions, preview))
			}
		}
		fmt.Println()
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	}
	return nil
}

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
