package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
	DriverMemory = "memory"
)

// Config holds all pantry configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Recipe  RecipeConfig  `yaml:"recipe"`
	Logging LoggingConfig `yaml:"logging"`
	UI      UIConfig      `yaml:"ui"`

	// providerSet records a provider named in the config file; a stored
	// credential or GEMINI_API_KEY never replaces it.
	providerSet bool
	// geminiKey is GEMINI_API_KEY held back until ResolveAPIKey knows no
	// other key exists.
	geminiKey   string
}

// StoreConfig selects where the shared item collection lives.
type StoreConfig struct {
	Driver     string `yaml:"driver"` // sqlite, json, memory
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// Recipe providers.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ValidProvider reports whether p names a supported provider.
func ValidProvider(p string) bool {
	switch normalizeProvider(p) {
	case ProviderGroq, ProviderOpenAI, ProviderGemini:
		return true
	}
	return false
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

// RecipeConfig configures the completion service.
type RecipeConfig struct {
	Provider string `yaml:"provider"` // groq, openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"` // empty: no timeout
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // "-" for stderr
}

type UIConfig struct {
	Theme string `yaml:"theme"`
}

// Dir is the per-user pantry directory (~/.pantry).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".pantry"), nil
}

// DefaultPath is where Load looks when no --config is given.
func DefaultPath() string {
	dir, err := Dir()
	if err != nil {
		return "pantry.yaml"
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	dir, err := Dir()
	if err != nil {
		dir = "."
	}
	return &Config{
		Store: StoreConfig{
			Driver:     DriverSQLite,
			Path:       filepath.Join(dir, "pantry.db"),
			Collection: "items",
		},
		Recipe: RecipeConfig{
			Provider: ProviderGroq,
			Model:    "llama3-8b-8192",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dir, "pantry.log"),
		},
		UI: UIConfig{Theme: "classic"},
	}
}

// Load reads a YAML config, falling back to defaults when the file is
// missing, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	// Cleared so that a provider named in the file can be told apart from
	// the default.
	cfg.Recipe.Provider = ""

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Recipe.Provider = normalizeProvider(cfg.Recipe.Provider)
	cfg.providerSet = cfg.Recipe.Provider != ""
	if !cfg.providerSet {
		cfg.Recipe.Provider = ProviderGroq
	}
	cfg.applyEnvOverrides()
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Logging.File = expandHome(cfg.Logging.File)
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	// Recipe API keys; NEXT_PUBLIC_GROQ_API_KEY is accepted for setups
	// carried over from the web version.
	if key := os.Getenv("NEXT_PUBLIC_GROQ_API_KEY"); key != "" {
		c.Recipe.APIKey = key
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Recipe.APIKey = key
	}
	// GEMINI_API_KEY is used directly only when gemini is the configured
	// provider; otherwise it is a fallback for when no other key exists.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.providerSet && c.Recipe.Provider == ProviderGemini {
			c.Recipe.APIKey = key
		} else {
			c.geminiKey = key
		}
	}

	if v := os.Getenv("PANTRY_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("PANTRY_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("PANTRY_COLLECTION"); v != "" {
		c.Store.Collection = v
	}
	if v := os.Getenv("PANTRY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects values no component can act on.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case DriverSQLite, DriverJSON, DriverMemory:
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	if c.Store.Driver != DriverMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path: required for driver %q", c.Store.Driver)
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("store.collection: required")
	}
	if !ValidProvider(c.Recipe.Provider) {
		return fmt.Errorf("recipe.provider: unknown provider %q", c.Recipe.Provider)
	}
	if _, err := c.RecipeTimeout(); err != nil {
		return err
	}
	return nil
}

// RecipeTimeout parses recipe.timeout; empty means no timeout.
func (c *Config) RecipeTimeout() (time.Duration, error) {
	if c.Recipe.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Recipe.Timeout)
	if err != nil {
		return 0, fmt.Errorf("recipe.timeout: %w", err)
	}
	return d, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
