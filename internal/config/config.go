// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.tutoria/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// The agent profile (persona and retrieval parameters produced by the
// configuration wizard) is a separate YAML document; see profile.go.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMaxIterations indicates the reasoning iteration cap is out of range.
	ErrInvalidMaxIterations = errors.New("invalid max iterations")

	// ErrMissingProfile indicates no agent profile path was configured.
	ErrMissingProfile = errors.New("missing agent profile")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// DefaultMaxIterations bounds the agent's reasoning/tool-call loop.
const DefaultMaxIterations = 3

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider   string `mapstructure:"provider"`    // "gemini" (default) or "ollama"
	ModelName  string `mapstructure:"model_name"`  // Model identifier (e.g., "gemini-2.5-flash", "llama3.3")
	OllamaHost string `mapstructure:"ollama_host"` // Only used when provider is "ollama"

	// Agent loop configuration
	MaxIterations int `mapstructure:"max_iterations"` // Reasoning/tool-call cap per query

	// Storage configuration
	DataDir string `mapstructure:"data_dir"` // Session storage area

	// Agent profile produced by the configuration wizard
	ProfilePath string `mapstructure:"profile_path"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".tutoria")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("max_iterations", DefaultMaxIterations)
	v.SetDefault("data_dir", filepath.Join(configDir, "data"))
	v.SetDefault("profile_path", "")
}

// bindEnvVariables binds environment variable overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a failure here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "TUTORIA_PROVIDER")
	mustBind("model_name", "TUTORIA_MODEL_NAME")
	mustBind("ollama_host", "TUTORIA_OLLAMA_HOST")
	mustBind("data_dir", "TUTORIA_DATA_DIR")
	mustBind("profile_path", "TUTORIA_PROFILE")
}

// Validate performs fail-fast range and presence checks.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (supported: gemini, ollama)", ErrInvalidProvider, c.Provider)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}

	if c.MaxIterations < 1 || c.MaxIterations > 10 {
		return fmt.Errorf("%w: %d (must be 1-10)", ErrInvalidMaxIterations, c.MaxIterations)
	}

	return nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3".
func (c *Config) FullModelName() string {
	switch c.Provider {
	case ProviderOllama:
		return "ollama/" + c.ModelName
	default:
		return "googleai/" + c.ModelName
	}
}
