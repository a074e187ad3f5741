package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Example returns a fully populated default configuration, suitable for
// writing out as a starting point.
func Example() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Volumes.ZFS = map[string]any{"binary": "zfs"}
	return cfg
}

// WriteExample renders the default configuration as YAML.
func WriteExample(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Example()); err != nil {
		return fmt.Errorf("encoding example config: %w", err)
	}
	return enc.Close()
}
