// Package memory provides an in-memory volume.Manager.
//
// It exists for the same reason the metadata and content stores in this
// codebase keep memory twins: tests and mock deployments need the full
// capability surface without touching a real pool. Datasets are declared
// up front; the manager then tracks key and mount state with the same
// idempotence rules the real zfs implementation exposes.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/zhome-project/zhome/pkg/volume"
)

// Property is one declared property observation.
type Property struct {
	Key    string        `mapstructure:"key"`
	Value  string        `mapstructure:"value"`
	Source volume.Source `mapstructure:"source"`
}

// Dataset declares one dataset and its initial state.
type Dataset struct {
	Name       string     `mapstructure:"name"`
	Mountpoint string     `mapstructure:"mountpoint"`
	Passphrase string     `mapstructure:"passphrase"`
	Mounted    bool       `mapstructure:"mounted"`
	KeyLoaded  bool       `mapstructure:"key_loaded"`
	Properties []Property `mapstructure:"properties"`
}

type state struct {
	Dataset
	keyLoaded bool
	mounted   bool
}

// Manager is an in-memory volume.Manager. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	datasets map[string]*state
	order    []string

	// Call counters, readable via Calls for tests that need to prove an
	// operation was never attempted.
	loadKeyCalls int
	mountCalls   int
}

// New creates a Manager with the given datasets.
func New(datasets ...Dataset) *Manager {
	m := &Manager{datasets: make(map[string]*state)}
	for _, d := range datasets {
		m.datasets[d.Name] = &state{Dataset: d, keyLoaded: d.KeyLoaded, mounted: d.Mounted}
		m.order = append(m.order, d.Name)
	}
	return m
}

// ListProperties returns every declared observation matching one of keys,
// plus synthesized mountpoint and mounted observations when those keys are
// requested. Declared duplicates are returned as-is.
func (m *Manager) ListProperties(_ context.Context, keys []string) ([]volume.PropertyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	var records []volume.PropertyRecord
	for _, name := range m.order {
		ds := m.datasets[name]
		for _, p := range ds.Properties {
			if want[p.Key] {
				records = append(records, volume.PropertyRecord{
					Name: name, Key: p.Key, Value: p.Value, Source: p.Source,
				})
			}
		}
		if want[volume.PropMountpoint] && ds.Mountpoint != "" {
			records = append(records, volume.PropertyRecord{
				Name: name, Key: volume.PropMountpoint, Value: ds.Mountpoint, Source: volume.SourceLocal,
			})
		}
		if want[volume.PropMounted] {
			records = append(records, volume.PropertyRecord{
				Name: name, Key: volume.PropMounted, Value: yesNo(ds.mounted), Source: volume.SourceNone,
			})
		}
	}
	return records, nil
}

// GetProperty answers point queries, serving live state for the mounted
// property and declared values for everything else.
func (m *Manager) GetProperty(_ context.Context, name, key string) (string, volume.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ds, ok := m.datasets[name]
	if !ok {
		return "", volume.SourceNone, fmt.Errorf("%q: %w", name, volume.ErrNotFound)
	}

	switch key {
	case volume.PropMounted:
		return yesNo(ds.mounted), volume.SourceNone, nil
	case volume.PropMountpoint:
		return ds.Mountpoint, volume.SourceLocal, nil
	}
	for _, p := range ds.Properties {
		if p.Key == key {
			return p.Value, p.Source, nil
		}
	}
	return "-", volume.SourceNone, nil
}

func (m *Manager) LoadKey(_ context.Context, name string, secret []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadKeyCalls++
	ds, ok := m.datasets[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, volume.ErrNotFound)
	}
	if ds.keyLoaded {
		return volume.ErrKeyAlreadyLoaded
	}
	if ds.Passphrase != "" && ds.Passphrase != string(secret) {
		return fmt.Errorf("incorrect key provided for %q", name)
	}
	ds.keyLoaded = true
	return nil
}

func (m *Manager) Mount(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mountCalls++
	ds, ok := m.datasets[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, volume.ErrNotFound)
	}
	if ds.mounted {
		return volume.ErrAlreadyMounted
	}
	if ds.Passphrase != "" && !ds.keyLoaded {
		return fmt.Errorf("cannot mount %q: encryption key not loaded", name)
	}
	ds.mounted = true
	return nil
}

// Mounted reports whether the named dataset is currently mounted.
func (m *Manager) Mounted(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.datasets[name]
	return ok && ds.mounted
}

// Calls reports how many LoadKey and Mount invocations the manager has
// seen, successful or not.
func (m *Manager) Calls() (loadKey, mount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadKeyCalls, m.mountCalls
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
