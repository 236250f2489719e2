package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recipes/config"
	"recipes/internal/adapter/store"
	"recipes/internal/logging"
)

var (
	cfgFile    string
	cfg        *config.Config
	rootDir    string
	storeFlag  string
	bundleFlag string
	quiet      bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Content-based recipe recommender",
	Long: `recipes ingests raw recipe exports, encodes ingredient lists into vectors,
builds an exact nearest-neighbour index and evaluates how well it retrieves
held-out recipes.

Example usage:
  recipes ingest data/RecipeNLG_dataset.csv   # Load and clean recipes
  recipes train                               # Build the model bundle
  recipes evaluate -k 5                       # Precision, recall, MRR, coverage
  recipes query -q "chicken, rice, garlic"    # Ad-hoc recommendations`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if storeFlag != "" {
			cfg.Store.Path = storeFlag
		}
		if bundleFlag != "" {
			cfg.Train.BundlePath = bundleFlag
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if quiet && logLevel == "" {
			cfg.Logging.Level = "warn"
		}
		logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./recipes.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "record store path (overrides store.path)")
	rootCmd.PersistentFlags().StringVar(&bundleFlag, "bundle", "", "model bundle path (overrides train.bundle_path)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "hide progress bars and info logs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// storePath resolves the configured store path against the root dir.
func storePath() string {
	return config.Resolve(rootDir, cfg.Store.Path)
}

func bundlePath() string {
	return config.Resolve(rootDir, cfg.Train.BundlePath)
}

// openStore opens the configured record store, creating its directory.
func openStore() (store.Store, error) {
	path := storePath()
	if err := config.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	st, err := store.Open(cfg.Store.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	return st, nil
}

// openExistingStore refuses to create an empty store on read paths.
func openExistingStore() (store.Store, error) {
	if _, err := os.Stat(storePath()); os.IsNotExist(err) {
		return nil, fmt.Errorf("no record store at %s. Run 'recipes ingest' first", storePath())
	}
	return openStore()
}
