package session

import "fmt"

// ConfigError reports a resolved dataset whose mount path cannot be
// determined. Fatal: the dataset is misconfigured, not missing.
type ConfigError struct {
	Dataset string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %q: %s", e.Dataset, e.Reason)
}

// UnsafeStateError reports a mountpoint that already holds entries while
// the dataset is unmounted. Mounting over it would hide existing data, so
// the run refuses before any key-load or mount is attempted. This gate is
// never bypassed or retried.
type UnsafeStateError struct {
	Dataset    string
	Mountpoint string
	Entries    int
}

func (e *UnsafeStateError) Error() string {
	return fmt.Sprintf("refusing to mount %q: mountpoint %s already holds %d entries while unmounted",
		e.Dataset, e.Mountpoint, e.Entries)
}

// OperationError reports a failed or unverifiable external operation:
// the mount call itself, a property query, or a post-condition that did
// not hold. Fatal, never retried.
type OperationError struct {
	Dataset string
	Stage   string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed for %q: %v", e.Stage, e.Dataset, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
