package session

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

// MountTable answers whether a path is present in the system mount table.
// It backs the optional post-mount cross-check: the capability may report
// the dataset mounted while the kernel disagrees, and that mismatch should
// fail the run rather than pass silently.
type MountTable interface {
	Contains(path string) (bool, error)
}

// SystemMountTable reads the live mount table of the host.
type SystemMountTable struct{}

func (SystemMountTable) Contains(path string) (bool, error) {
	partitions, err := disk.Partitions(true)
	if err != nil {
		return false, fmt.Errorf("reading mount table: %w", err)
	}
	for _, p := range partitions {
		if p.Mountpoint == path {
			return true, nil
		}
	}
	return false, nil
}
