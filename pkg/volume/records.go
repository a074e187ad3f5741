// Package volume defines the property model and the manager capability used
// to inspect, unlock and mount encrypted datasets.
//
// The package is deliberately thin: it owns the record types the resolver
// consumes and the Manager interface the session drives. Concrete
// implementations live in the zfs (CLI-backed) and memory (test/in-process)
// subpackages, mirroring how stores are split elsewhere in this codebase.
package volume

import "strings"

// Well-known property keys consulted during resolution and mounting.
const (
	// PropCanMount controls whether the dataset may be auto-mounted by the
	// storage system itself. Login-managed homes carry "noauto".
	PropCanMount = "canmount"

	// PropMountpoint is the dataset's configured mount path.
	PropMountpoint = "mountpoint"

	// PropMounted reports live mount state ("yes" or "no").
	PropMounted = "mounted"
)

// CanMountNoAuto is the canmount value that marks a dataset as mounted only
// by an external trigger such as this tool.
const CanMountNoAuto = "noauto"

// Source identifies where a property value comes from. Only locally set
// values are authoritative for ownership and mount-policy decisions;
// inherited or defaulted values must never match.
type Source string

const (
	SourceLocal     Source = "local"
	SourceInherited Source = "inherited"
	SourceDefault   Source = "default"
	SourceReceived  Source = "received"
	SourceTemporary Source = "temporary"
	SourceNone      Source = "none"
)

// ParseSource normalizes a raw source column into a Source. ZFS reports
// inherited values as "inherited from <ancestor>"; anything unrecognized
// maps to SourceNone so it can never be mistaken for a local value.
func ParseSource(raw string) Source {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == string(SourceLocal):
		return SourceLocal
	case raw == string(SourceDefault):
		return SourceDefault
	case raw == string(SourceReceived):
		return SourceReceived
	case raw == string(SourceTemporary):
		return SourceTemporary
	case raw == "-", raw == "":
		return SourceNone
	case strings.HasPrefix(raw, string(SourceInherited)):
		return SourceInherited
	default:
		return SourceNone
	}
}

// PropertyRecord is a single property observation for a single dataset.
// A dataset may appear in any number of records, in any order, possibly
// duplicated; consumers impose their own ordering.
type PropertyRecord struct {
	// Name is the dataset's hierarchical identifier, e.g. "rpool/home/alice".
	Name string

	// Key is the property name, e.g. "canmount" or a user property.
	Key string

	// Value is the property's raw string value.
	Value string

	// Source reports where the value was set.
	Source Source
}
