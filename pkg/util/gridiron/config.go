package gridiron

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv is consulted when no API key is configured
const APIKeyEnv = "SPORTRADAR_API_KEY"

// GridironConfig contains every tunable used by the datasource, the store and
// the predictor defaults
type GridironConfig struct {
	// Database and cache parameters
	AssetsPath string `yaml:"assetsPath"` // base directory of gridiron assets
	CachePath  string `yaml:"cachePath"`  // downloaded play-by-play documents
	DbPath     string `yaml:"dbPath"`     // the sqlite database

	// === SPORTRADAR ===
	BaseURL         string        `yaml:"baseUrl"`
	AccessLevel     string        `yaml:"accessLevel"` // trial or production
	Version         string        `yaml:"version"`
	Language        string        `yaml:"language"`
	APIKey          string        `yaml:"apiKey"`
	RequestInterval time.Duration `yaml:"requestInterval"` // minimum gap between API calls
	HTTPTimeout     time.Duration `yaml:"httpTimeout"`

	// === PREDICTION DEFAULTS ===
	K           int      `yaml:"k"`
	Features    []string `yaml:"features"`
	LabelColumn string   `yaml:"labelColumn"`
}

// DefaultGridironConfig returns the default configuration with all standard values
func DefaultGridironConfig() *GridironConfig {
	assetsPath := ".gridiron"
	if home, err := os.UserHomeDir(); err == nil {
		assetsPath = filepath.Join(home, ".gridiron")
	}
	return &GridironConfig{
		AssetsPath: assetsPath,
		CachePath:  filepath.Join(assetsPath, "cache"),
		DbPath:     filepath.Join(assetsPath, "gridiron.db"),

		BaseURL:     "https://api.sportradar.us",
		AccessLevel: "trial",
		Version:     "v7",
		Language:    "en",
		APIKey:      os.Getenv(APIKeyEnv),
		// the trial tier allows one query per second
		RequestInterval: time.Second,
		HTTPTimeout:     30 * time.Second,

		K:           5,
		Features:    []string{"down", "yards_to_go", "yards_to_endzone", "clock_seconds", "score_diff"},
		LabelColumn: "play_type",
	}
}

// Global configuration instance
var Config *GridironConfig

func init() {
	Config = DefaultGridironConfig()
}

// UpdateConfig replaces the global configuration
func UpdateConfig(newConfig *GridironConfig) {
	Config = newConfig
}

// LoadConfig reads a YAML file over the defaults. Keys absent from the file
// keep their default values. Paths derived from assetsPath follow it unless
// set explicitly.
func LoadConfig(path string) (*GridironConfig, error) {
	cfg := DefaultGridironConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var probe struct {
		AssetsPath string `yaml:"assetsPath"`
		CachePath  string `yaml:"cachePath"`
		DbPath     string `yaml:"dbPath"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if probe.AssetsPath != "" {
		if probe.CachePath == "" {
			cfg.CachePath = filepath.Join(cfg.AssetsPath, "cache")
		}
		if probe.DbPath == "" {
			cfg.DbPath = filepath.Join(cfg.AssetsPath, "gridiron.db")
		}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(APIKeyEnv)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig ensures all configuration values are within reasonable ranges
func ValidateConfig(config *GridironConfig) error {
	if config.K < 1 {
		return fmt.Errorf("K must be at least 1, got: %d", config.K)
	}
	if err := validateFeatures(config.Features); err != nil {
		return fmt.Errorf("Features: %w", err)
	}
	if config.LabelColumn == "" {
		return fmt.Errorf("LabelColumn must be set")
	}
	if config.RequestInterval <= 0 {
		return fmt.Errorf("RequestInterval must be positive, got: %s", config.RequestInterval)
	}
	if config.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTPTimeout must be positive, got: %s", config.HTTPTimeout)
	}
	if config.BaseURL == "" {
		return fmt.Errorf("BaseURL must be set")
	}
	return nil
}
