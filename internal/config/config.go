package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	AI       AIConfig       `toml:"ai"`
	Search   SearchConfig   `toml:"search"`
	Blog     BlogConfig     `toml:"blog"`
	Images   ImagesConfig   `toml:"images"`
	Patterns PatternsConfig `toml:"patterns"`
	Preview  PreviewConfig  `toml:"preview"`
}

// AIConfig holds text-generation provider settings.
type AIConfig struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	Tone     string `toml:"tone"`
}

// SearchConfig holds web-search settings.
type SearchConfig struct {
	Enabled         bool `toml:"enabled"`
	MaxResults      int  `toml:"max_results"`
	TimeoutSeconds  int  `toml:"timeout_seconds"`
	EnrichTopResult bool `toml:"enrich_top_result"`
}

// BlogConfig holds publishing defaults.
type BlogConfig struct {
	DefaultCategory   string `toml:"default_category"`
	DefaultVisibility int    `toml:"default_visibility"`
}

// ImagesConfig holds stock-image settings.
type ImagesConfig struct {
	UnsplashAccessKey string `toml:"unsplash_access_key"`
}

// PatternsConfig holds publish-pattern history settings.
type PatternsConfig struct {
	HistoryPath string  `toml:"history_path"`
	Window      int     `toml:"window"`
	NumericCap  float64 `toml:"numeric_cap"`
}

// PreviewConfig holds draft-preview server settings.
type PreviewConfig struct {
	Port int `toml:"port"`
}

const defaultConfigContent = `[ai]
provider = "openai"               # "openai" or "anthropic"
api_key = ""                      # Your API key (or set AI_API_KEY env var)
model = "gpt-4o"                  # See README for supported models
tone = "친근하고 실용적인"

[search]
enabled = true
max_results = 5
timeout_seconds = 8
enrich_top_result = false

[blog]
default_category = ""             # Category name, e.g. "AI" (empty = uncategorized)
default_visibility = 0            # 0=private, 15=protected, 20=public

[images]
unsplash_access_key = ""          # Or set UNSPLASH_ACCESS_KEY env var

[patterns]
history_path = ""                 # Empty = <data dir>/patterns.jsonl
window = 5
numeric_cap = 0.4

[preview]
port = 8991
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "port = 0" is an error rather than silently
	// being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "port = 0" which would otherwise be silently
// replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("preview", "port") {
		if cfg.Preview.Port < 1 || cfg.Preview.Port > 65535 {
			return fmt.Errorf("invalid preview.port %d: must be between 1 and 65535", cfg.Preview.Port)
		}
	}
	if md.IsDefined("search", "max_results") {
		if cfg.Search.MaxResults < 1 {
			return fmt.Errorf("invalid search.max_results %d: must be >= 1", cfg.Search.MaxResults)
		}
	}
	if md.IsDefined("patterns", "numeric_cap") {
		if cfg.Patterns.NumericCap <= 0 || cfg.Patterns.NumericCap > 1 {
			return fmt.Errorf("invalid patterns.numeric_cap %v: must be in (0, 1]", cfg.Patterns.NumericCap)
		}
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields. md is needed
// for search.enabled: TOML parses a missing bool as false, so only an
// explicit "enabled = false" disables search.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o"
	}
	if cfg.AI.Tone == "" {
		cfg.AI.Tone = "친근하고 실용적인"
	}
	if !md.IsDefined("search", "enabled") {
		cfg.Search.Enabled = true
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 5
	}
	if cfg.Search.TimeoutSeconds == 0 {
		cfg.Search.TimeoutSeconds = 8
	}
	if cfg.Patterns.Window == 0 {
		cfg.Patterns.Window = 5
	}
	if cfg.Patterns.NumericCap == 0 {
		cfg.Patterns.NumericCap = 0.4
	}
	if cfg.Preview.Port == 0 {
		cfg.Preview.Port = 8991
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
//
// Priority for ai.api_key:
//  1. AI_API_KEY (generic, highest)
//  2. OPENAI_API_KEY (when provider is "openai")
//  3. ANTHROPIC_API_KEY (when provider is "anthropic")
func applyEnvOverrides(cfg *Config) {
	// Apply provider-specific env var first (lower priority).
	switch cfg.AI.Provider {
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	case "anthropic":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	}

	// AI_API_KEY overrides everything (highest priority).
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}

	if v := os.Getenv("UNSPLASH_ACCESS_KEY"); v != "" {
		cfg.Images.UnsplashAccessKey = v
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	switch cfg.AI.Provider {
	case "anthropic", "openai":
		// valid
	default:
		return fmt.Errorf("invalid ai.provider %q: must be \"anthropic\" or \"openai\"", cfg.AI.Provider)
	}

	if cfg.Preview.Port < 1 || cfg.Preview.Port > 65535 {
		return fmt.Errorf("invalid preview.port %d: must be between 1 and 65535", cfg.Preview.Port)
	}

	switch cfg.Blog.DefaultVisibility {
	case 0, 15, 20:
		// valid
	default:
		return fmt.Errorf("invalid blog.default_visibility %d: must be 0, 15 or 20", cfg.Blog.DefaultVisibility)
	}

	if cfg.Search.MaxResults < 1 {
		return fmt.Errorf("invalid search.max_results %d: must be >= 1", cfg.Search.MaxResults)
	}

	if cfg.AI.APIKey == "" {
		slog.Warn("ai.api_key is empty: set it in the config file or via AI_API_KEY environment variable")
	}

	return nil
}
