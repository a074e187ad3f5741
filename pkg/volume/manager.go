package volume

import (
	"context"
	"errors"
)

// Benign conditions surfaced by Manager implementations. Callers are
// expected to log and continue when they see these; treating them as fatal
// would break re-entrant login flows.
var (
	// ErrKeyAlreadyLoaded reports that the dataset's encryption key was
	// already present when LoadKey was called.
	ErrKeyAlreadyLoaded = errors.New("encryption key already loaded")

	// ErrAlreadyMounted reports that the dataset was already mounted when
	// Mount was called.
	ErrAlreadyMounted = errors.New("dataset already mounted")
)

// ErrNotFound reports that a dataset named in a point query does not exist.
var ErrNotFound = errors.New("dataset does not exist")

// Manager is the capability surface of the underlying volume system.
//
// Implementations must be idempotent where the protocol demands it:
// loading an already-loaded key and mounting an already-mounted dataset
// return ErrKeyAlreadyLoaded and ErrAlreadyMounted respectively, never a
// hard failure. No implementation may retain or log secret material.
type Manager interface {
	// ListProperties enumerates the given property keys across every
	// filesystem dataset, returning one record per (dataset, key)
	// observation. Ordering is unspecified.
	ListProperties(ctx context.Context, keys []string) ([]PropertyRecord, error)

	// GetProperty performs a point query for one property on one dataset.
	GetProperty(ctx context.Context, name, key string) (value string, source Source, err error)

	// LoadKey supplies the decryption secret for the dataset. The secret is
	// consumed for the duration of the call only.
	LoadKey(ctx context.Context, name string, secret []byte) error

	// Mount mounts the dataset at its configured mountpoint.
	Mount(ctx context.Context, name string) error
}
