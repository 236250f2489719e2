package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"recipes/config"
	"recipes/internal/adapter/bundle"
	"recipes/internal/adapter/store"
	"recipes/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding recipes.yaml and .recipes/")
	query := flag.String("q", "", "Ingredient list to query")
	topK := flag.Int("k", 5, "Number of results")
	iterations := flag.Int("n", 100, "Timed repetitions")
	workers := flag.Int("workers", 0, "Distance workers (0 = GOMAXPROCS)")
	flag.Parse()

	if *iterations < 1 {
		*iterations = 1
	}

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"chicken, rice, garlic\"")
		fmt.Println("\nMeasures:")
		fmt.Println("  1. Bundle load and model restore time")
		fmt.Println("  2. Query latency percentiles over -n repetitions")
		fmt.Println("  3. Distance profile of the top results")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	loadStart := time.Now()
	b, err := bundle.Load(config.Resolve(*dir, cfg.Train.BundlePath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bundle: %v\n", err)
		os.Exit(1)
	}
	model, err := usecase.LoadModel(b, *workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error restoring model: %v\n", err)
		os.Exit(1)
	}
	loadTime := time.Since(loadStart)

	st, err := store.Open(cfg.Store.Driver, config.Resolve(*dir, cfg.Store.Path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	fmt.Println("QUERY LATENCY BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Bundle:    %s (%s, dimension %d)\n", b.ID, b.Encoder.Kind, b.Encoder.Dimension)
	fmt.Printf("Rows:      %d\n", model.Index.Rows())
	fmt.Printf("Load time: %s\n", loadTime.Round(time.Millisecond))
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	latencies := make([]time.Duration, 0, *iterations)
	for i := 0; i < *iterations; i++ {
		start := time.Now()
		if _, err := model.Neighbors(*query, *topK); err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		latencies = append(latencies, time.Since(start))
	}

	recs, err := usecase.NewRecommendUseCase(st, model).Recommend(*query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Top %d matches:\n\n", len(recs))
	for _, r := range recs {
		rating := "FAR"
		if r.Distance < 0.2 {
			rating = "CLOSE"
		} else if r.Distance < 0.5 {
			rating = "NEAR"
		} else if r.Distance < 0.8 {
			rating = "OK"
		}
		fmt.Printf("%d. [%s %.3f] %s\n", r.Rank, rating, r.Distance, r.Recipe.Title)
		fmt.Printf("   %s\n\n", r.Recipe.Ingredients)
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var total time.Duration
	for _, l := range latencies {
		total += l
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("LATENCY (%d runs):\n", len(latencies))
	fmt.Printf("  Mean: %s\n", (total / time.Duration(len(latencies))).Round(time.Microsecond))
	fmt.Printf("  p50:  %s\n", percentile(latencies, 0.50).Round(time.Microsecond))
	fmt.Printf("  p95:  %s\n", percentile(latencies, 0.95).Round(time.Microsecond))
	fmt.Printf("  Max:  %s\n", latencies[len(latencies)-1].Round(time.Microsecond))
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(p * float64(len(sorted)-1))
	return sorted[i]
}
