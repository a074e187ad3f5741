// Package zfs implements the volume.Manager capability by shelling out to
// the zfs command line tool.
//
// All property reads use `zfs get -H`, whose tab-separated output is stable
// and script-safe. Mutations go through `zfs load-key` and `zfs mount`.
// The benign races a login flow can hit ("key already loaded", "filesystem
// already mounted") are classified from stderr and surfaced as the sentinel
// errors defined in the volume package, never as hard failures.
package zfs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhome-project/zhome/pkg/volume"
)

// DefaultBinary is the zfs executable used when no override is configured.
const DefaultBinary = "zfs"

// Manager drives a local zfs binary. The zero value is not usable; use New.
type Manager struct {
	run Runner
}

// An Option configures a Manager.
type Option func(*Manager)

// WithBinary overrides the zfs executable path.
func WithBinary(path string) Option {
	return func(m *Manager) {
		m.run = &execRunner{bin: path}
	}
}

// WithRunner substitutes the command runner entirely. Intended for tests.
func WithRunner(r Runner) Option {
	return func(m *Manager) {
		m.run = r
	}
}

// New creates a Manager that invokes the system zfs binary.
func New(opts ...Option) *Manager {
	m := &Manager{run: &execRunner{bin: DefaultBinary}}
	for _, o := range opts {
		o(m)
	}
	return m
}

// ListProperties enumerates keys across all filesystem datasets via a
// single `zfs get` invocation.
func (m *Manager) ListProperties(ctx context.Context, keys []string) ([]volume.PropertyRecord, error) {
	if len(keys) == 0 {
		return nil, errors.New("zfs: at least one property key is required")
	}

	args := []string{
		"get", "-H",
		"-o", "name,property,value,source",
		"-t", "filesystem",
		strings.Join(keys, ","),
	}
	out, err := m.run.Run(ctx, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("listing dataset properties: %w", err)
	}
	return parseRecords(out)
}

// GetProperty reads a single property of a single dataset.
func (m *Manager) GetProperty(ctx context.Context, name, key string) (string, volume.Source, error) {
	out, err := m.run.Run(ctx, nil, "get", "-H", "-o", "value,source", key, name)
	if err != nil {
		if isNoSuchDataset(err) {
			return "", volume.SourceNone, fmt.Errorf("%q: %w", name, volume.ErrNotFound)
		}
		return "", volume.SourceNone, fmt.Errorf("reading %s of %q: %w", key, name, err)
	}
	return parseValueSource(out)
}

// LoadKey feeds the secret to `zfs load-key` on the dataset's stdin. An
// already-loaded key is reported as volume.ErrKeyAlreadyLoaded.
func (m *Manager) LoadKey(ctx context.Context, name string, secret []byte) error {
	_, err := m.run.Run(ctx, secret, "load-key", name)
	if err != nil {
		if isKeyAlreadyLoaded(err) {
			return volume.ErrKeyAlreadyLoaded
		}
		return fmt.Errorf("loading key for %q: %w", name, err)
	}
	return nil
}

// Mount mounts the dataset. An already-mounted dataset is reported as
// volume.ErrAlreadyMounted.
func (m *Manager) Mount(ctx context.Context, name string) error {
	_, err := m.run.Run(ctx, nil, "mount", name)
	if err != nil {
		if isAlreadyMounted(err) {
			return volume.ErrAlreadyMounted
		}
		return fmt.Errorf("mounting %q: %w", name, err)
	}
	return nil
}

// stderr classification. zfs has no machine-readable error channel, so the
// messages themselves are the contract:
//
//	Key load error: Key already loaded for 'rpool/home/alice'.
//	cannot mount 'rpool/home/alice': filesystem already mounted
//	cannot open 'rpool/nope': dataset does not exist

func stderrOf(err error) (string, bool) {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return "", false
	}
	return strings.ToLower(cmdErr.Stderr), true
}

func isKeyAlreadyLoaded(err error) bool {
	msg, ok := stderrOf(err)
	return ok && strings.Contains(msg, "key already loaded")
}

func isAlreadyMounted(err error) bool {
	msg, ok := stderrOf(err)
	return ok && strings.Contains(msg, "already mounted")
}

func isNoSuchDataset(err error) bool {
	msg, ok := stderrOf(err)
	return ok && strings.Contains(msg, "dataset does not exist")
}
