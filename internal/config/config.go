// Package config provides Viper-based configuration management for depmap
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete depmap configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Diagram   DiagramConfig   `mapstructure:"diagram"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Output    OutputConfig    `mapstructure:"output"`
}

// DatabaseConfig locates the sqlite topology database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DiagramConfig contains diagram rendering settings
type DiagramConfig struct {
	Format         string        `mapstructure:"format"`
	PlantUMLBinary string        `mapstructure:"plantuml_binary"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// ArtifactsConfig locates the rendered artifact store
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Color string `mapstructure:"color"`
}

// Load reads configuration from file and environment variables
func Load(cfgFile, dbPath string) (*Config, error) {
	v := viper.New()

	// Set config file if specified
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Search paths for .depmap.yaml
		v.SetConfigName(".depmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/depmap")
	}

	// Environment variables
	v.SetEnvPrefix("DEPMAP")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Override database path if specified via flag
	if dbPath != "" {
		v.Set("database.path", dbPath)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "depmap.db")

	// Diagram defaults
	v.SetDefault("diagram.format", "png")
	v.SetDefault("diagram.plantuml_binary", "plantuml")
	v.SetDefault("diagram.timeout", "30s")

	// Artifact store defaults
	v.SetDefault("artifacts.dir", "artifacts")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Output defaults
	v.SetDefault("output.color", "auto")
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	// Validate diagram format
	validDiagramFormats := map[string]bool{"puml": true, "png": true, "svg": true}
	if !validDiagramFormats[cfg.Diagram.Format] {
		return fmt.Errorf("invalid diagram format: %s (must be puml, png, or svg)", cfg.Diagram.Format)
	}

	// Validate color mode
	validColorModes := map[string]bool{"auto": true, "always": true, "never": true}
	if !validColorModes[cfg.Output.Color] {
		return fmt.Errorf("invalid color mode: %s (must be auto, always, or never)", cfg.Output.Color)
	}

	if cfg.Diagram.Timeout <= 0 {
		return fmt.Errorf("invalid diagram timeout: %s (must be positive)", cfg.Diagram.Timeout)
	}

	return nil
}
