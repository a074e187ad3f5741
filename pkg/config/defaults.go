package config

import (
	"strings"

	"github.com/zhome-project/zhome/pkg/session"
)

// Default values applied to unspecified fields.
const (
	// DefaultUserEnv is the variable pam_exec-style hooks set to the
	// authenticating username.
	DefaultUserEnv = "PAM_USER"

	// DefaultProvider is the volume manager used when none is configured.
	DefaultProvider = "zfs"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
// Provider-specific defaults are handled by the provider factories.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyHookDefaults(&cfg.Hook)
	applyPropertiesDefaults(&cfg.Properties)
	applyVolumesDefaults(&cfg.Volumes)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		// A login hook's stdout may be interpreted by the calling
		// framework; diagnostics go to stderr.
		cfg.Output = "stderr"
	}
}

func applyHookDefaults(cfg *HookConfig) {
	if cfg.UserEnv == "" {
		cfg.UserEnv = DefaultUserEnv
	}
}

func applyPropertiesDefaults(cfg *PropertiesConfig) {
	if cfg.Owner == "" {
		cfg.Owner = session.DefaultOwnerProperty
	}
}

func applyVolumesDefaults(cfg *VolumesConfig) {
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
}
