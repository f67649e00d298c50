package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration. Values act as defaults;
// command-line flags override them per invocation.
type Config struct {
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
}

// DefaultsConfig holds the default generation knobs.
type DefaultsConfig struct {
	Environment   string `mapstructure:"environment"`
	Provider      string `mapstructure:"provider"`
	Region        string `mapstructure:"region"`
	SecurityLevel string `mapstructure:"security_level"`
	Budget        string `mapstructure:"budget"`
	Namespace     string `mapstructure:"namespace"`
	Domain        string `mapstructure:"domain"`
}

// OutputConfig holds manifest output configuration.
type OutputConfig struct {
	// Dir is the directory manifests are written to, one file per
	// resource. Ignored when a single output file is requested.
	Dir string `mapstructure:"dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("defaults.environment", "development")
	v.SetDefault("defaults.provider", "aws")
	v.SetDefault("defaults.region", "")
	v.SetDefault("defaults.security_level", "basic")
	v.SetDefault("defaults.budget", "standard")
	v.SetDefault("defaults.namespace", "default")
	v.SetDefault("defaults.domain", "example.com")
	v.SetDefault("output.dir", "./manifests")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("STACKFORM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
