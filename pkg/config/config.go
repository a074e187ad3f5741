// Package config loads and validates the zhome configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigDir is where the configuration file is searched for when no
// explicit path is given. zhome runs from an authentication hook as root,
// so the file lives in /etc rather than a per-user location.
const DefaultConfigDir = "/etc/zhome"

// Config captures every configurable aspect of zhome.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (ZHOME_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Hook configures how the login hook hands over its inputs
	Hook HookConfig `mapstructure:"hook" yaml:"hook"`

	// Properties names the dataset properties consulted during resolution
	Properties PropertiesConfig `mapstructure:"properties" yaml:"properties"`

	// Volumes selects the volume manager implementation
	Volumes VolumesConfig `mapstructure:"volumes" yaml:"volumes"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// HookConfig describes the authentication-hook calling convention.
type HookConfig struct {
	// UserEnv is the environment variable carrying the logging-in username
	UserEnv string `mapstructure:"user_env" yaml:"user_env" validate:"required"`

	// VerifyMountTable additionally checks the system mount table after a
	// mount before declaring success
	VerifyMountTable bool `mapstructure:"verify_mount_table" yaml:"verify_mount_table"`
}

// PropertiesConfig names the dataset properties used for resolution.
type PropertiesConfig struct {
	// Owner is the user property tagging a dataset with its owner account.
	// ZFS requires user properties to contain a colon.
	Owner string `mapstructure:"owner" yaml:"owner" validate:"required"`
}

// VolumesConfig selects and configures the volume manager.
//
// The Provider field determines which implementation is used. Only the
// corresponding provider-specific section is consulted.
type VolumesConfig struct {
	// Provider specifies which volume manager implementation to use
	// Valid values: zfs, memory
	Provider string `mapstructure:"provider" yaml:"provider" validate:"required,oneof=zfs memory"`

	// ZFS contains zfs-specific configuration
	// Only used when Provider = "zfs"
	ZFS map[string]any `mapstructure:"zfs" yaml:"zfs,omitempty"`

	// Memory contains memory-provider configuration
	// Only used when Provider = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses the default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support and the config file
// location. Environment variables use the ZHOME_ prefix with underscores,
// e.g. ZHOME_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("ZHOME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Register every key so environment-only overrides survive Unmarshal;
	// viper only consults the environment for keys it already knows about.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"hook.user_env", "properties.owner", "volumes.provider",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("hook.verify_mount_table", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(DefaultConfigDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is fine: defaults and environment variables carry a usable setup.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
