package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix marks environment overrides, e.g. RECIPES_TRAIN__NEIGHBOR_COUNT=20.
	EnvPrefix = "RECIPES_"

	// DataDirName holds the store and bundle when paths are left relative.
	DataDirName = ".recipes"
)

// Config holds all configuration for the recipe pipeline.
type Config struct {
	Store    StoreConfig    `yaml:"store" koanf:"store"`
	Corpus   CorpusConfig   `yaml:"corpus" koanf:"corpus"`
	Encoder  EncoderConfig  `yaml:"encoder" koanf:"encoder"`
	Train    TrainConfig    `yaml:"train" koanf:"train"`
	Evaluate EvaluateConfig `yaml:"evaluate" koanf:"evaluate"`
	Query    QueryConfig    `yaml:"query" koanf:"query"`
	Logging  LoggingConfig  `yaml:"logging" koanf:"logging"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" koanf:"driver" validate:"oneof=bolt duckdb"`
	Path   string `yaml:"path" koanf:"path" validate:"required"`
}

// CorpusConfig holds ingestion settings.
type CorpusConfig struct {
	Includes          []string `yaml:"includes" koanf:"includes"`
	Excludes          []string `yaml:"excludes" koanf:"excludes"`
	ChunkSize         int      `yaml:"chunk_size" koanf:"chunk_size" validate:"gt=0"`
	MaxRecipes        int      `yaml:"max_recipes" koanf:"max_recipes" validate:"gte=0"` // 0 = unlimited
	MinIngredients    int      `yaml:"min_ingredients" koanf:"min_ingredients" validate:"gte=1"`
	MaxIngredients    int      `yaml:"max_ingredients" koanf:"max_ingredients" validate:"gtefield=MinIngredients"`
	MinDirectionWords int      `yaml:"min_direction_words" koanf:"min_direction_words" validate:"gte=0"`
	Encoding          string   `yaml:"encoding" koanf:"encoding" validate:"oneof=auto utf-8 latin-1"`
}

// EncoderConfig holds ingredient encoder settings.
type EncoderConfig struct {
	Strategy    string `yaml:"strategy" koanf:"strategy" validate:"oneof=hashing tfidf"`
	Dimension   int    `yaml:"dimension" koanf:"dimension" validate:"gt=0"`       // hashing buckets
	MaxFeatures int    `yaml:"max_features" koanf:"max_features" validate:"gt=0"` // tfidf vocabulary bound
	SampleSize  int    `yaml:"sample_size" koanf:"sample_size" validate:"gt=0"`   // tfidf fitting sample cap
	StopWords   bool   `yaml:"stop_words" koanf:"stop_words"`
	Norm        string `yaml:"norm" koanf:"norm" validate:"oneof=l2 none"`
}

// TrainConfig holds model training settings.
type TrainConfig struct {
	BatchSize     int    `yaml:"batch_size" koanf:"batch_size" validate:"gt=0"`
	NeighborCount int    `yaml:"neighbor_count" koanf:"neighbor_count" validate:"gt=0"`
	Workers       int    `yaml:"workers" koanf:"workers" validate:"gte=0"` // 0 = GOMAXPROCS
	BundlePath    string `yaml:"bundle_path" koanf:"bundle_path" validate:"required"`
	Seed          int64  `yaml:"seed" koanf:"seed"`
}

// EvaluateConfig holds evaluation settings.
type EvaluateConfig struct {
	K            int     `yaml:"k" koanf:"k" validate:"gt=0"`
	TestFraction float64 `yaml:"test_fraction" koanf:"test_fraction" validate:"gt=0,lt=1"`
	SampleSize   int     `yaml:"sample_size" koanf:"sample_size" validate:"gt=0"`
	Seed         int64   `yaml:"seed" koanf:"seed"`
	Chart        bool    `yaml:"chart" koanf:"chart"`
	PromFile     string  `yaml:"prom_file" koanf:"prom_file"`
}

// QueryConfig holds ad-hoc recommendation settings.
type QueryConfig struct {
	TopK            int `yaml:"top_k" koanf:"top_k" validate:"gt=0"`
	CacheSize       int `yaml:"cache_size" koanf:"cache_size" validate:"gte=0"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" koanf:"cache_ttl_seconds" validate:"gte=0"`
	PreviewChars    int `yaml:"preview_chars" koanf:"preview_chars" validate:"gte=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" koanf:"format" validate:"oneof=console json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "bolt",
			Path:   filepath.Join(DataDirName, "recipes.db"),
		},
		Corpus: CorpusConfig{
			Includes:          []string{"**/*.csv"},
			Excludes:          []string{"**/.git/**", "**/" + DataDirName + "/**"},
			ChunkSize:         50000,
			MaxRecipes:        500000,
			MinIngredients:    3,
			MaxIngredients:    20,
			MinDirectionWords: 20,
			Encoding:          "auto",
		},
		Encoder: EncoderConfig{
			Strategy:    "hashing",
			Dimension:   10000,
			MaxFeatures: 10000,
			SampleSize:  100000,
			StopWords:   true,
			Norm:        "l2",
		},
		Train: TrainConfig{
			BatchSize:     10000,
			NeighborCount: 10,
			Workers:       0,
			BundlePath:    filepath.Join(DataDirName, "model.bundle.gz"),
			Seed:          42,
		},
		Evaluate: EvaluateConfig{
			K:            5,
			TestFraction: 0.2,
			SampleSize:   1000,
			Seed:         42,
			Chart:        true,
		},
		Query: QueryConfig{
			TopK:            3,
			CacheSize:       100,
			CacheTTLSeconds: 300,
			PreviewChars:    100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// sliceKeys are split on commas when set from the environment.
var sliceKeys = []string{"corpus.includes", "corpus.excludes"}

// Load layers defaults, the YAML file at path (skipped when missing) and
// RECIPES_ environment variables, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	for _, key := range sliceKeys {
		if s, ok := k.Get(key).(string); ok {
			if err := k.Set(key, splitList(s)); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", key, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransform maps RECIPES_TRAIN__NEIGHBOR_COUNT to train.neighbor_count.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadFromDir loads configuration from a directory (looks for recipes.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "recipes.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DataDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return Load("")
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve returns p unchanged when absolute, else joined onto root.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
