package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/zhome-project/zhome/pkg/volume"
	"github.com/zhome-project/zhome/pkg/volume/memory"
	"github.com/zhome-project/zhome/pkg/volume/zfs"
)

// CreateVolumeManager creates a volume manager based on configuration.
//
// This factory uses the Provider field to determine which implementation
// to create, then decodes the provider-specific configuration from the
// corresponding map and passes it to the implementation's constructor.
//
// Supported providers:
//   - "zfs": shells out to the system zfs binary
//   - "memory": in-memory manager with declared datasets, for tests and
//     mock deployments
func CreateVolumeManager(cfg *VolumesConfig) (volume.Manager, error) {
	switch cfg.Provider {
	case "zfs":
		return createZFSManager(cfg.ZFS)
	case "memory":
		return createMemoryManager(cfg.Memory)
	default:
		return nil, fmt.Errorf("unknown volume provider: %q", cfg.Provider)
	}
}

// createZFSManager creates the CLI-backed manager.
func createZFSManager(options map[string]any) (volume.Manager, error) {
	type ZFSProviderConfig struct {
		Binary string `mapstructure:"binary"`
	}

	var providerCfg ZFSProviderConfig
	if err := mapstructure.Decode(options, &providerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode zfs provider config: %w", err)
	}

	if providerCfg.Binary == "" {
		providerCfg.Binary = zfs.DefaultBinary
	}

	return zfs.New(zfs.WithBinary(providerCfg.Binary)), nil
}

// createMemoryManager creates the in-memory manager from declared datasets.
func createMemoryManager(options map[string]any) (volume.Manager, error) {
	type MemoryProviderConfig struct {
		Datasets []memory.Dataset `mapstructure:"datasets"`
	}

	var providerCfg MemoryProviderConfig
	if err := mapstructure.Decode(options, &providerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory provider config: %w", err)
	}

	return memory.New(providerCfg.Datasets...), nil
}
