package zfs

import (
	"fmt"
	"strings"

	"github.com/zhome-project/zhome/pkg/volume"
)

// parseRecords parses `zfs get -H -o name,property,value,source` output:
// one observation per line, four tab-separated columns.
func parseRecords(out []byte) ([]volume.PropertyRecord, error) {
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")

	var records []volume.PropertyRecord
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return nil, fmt.Errorf("malformed zfs get output line %q: want 4 columns, got %d", line, len(fields))
		}
		records = append(records, volume.PropertyRecord{
			Name:   fields[0],
			Key:    fields[1],
			Value:  fields[2],
			Source: volume.ParseSource(fields[3]),
		})
	}
	return records, nil
}

// parseValueSource parses `zfs get -H -o value,source` point-query output.
func parseValueSource(out []byte) (string, volume.Source, error) {
	line := strings.TrimRight(string(out), "\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 2 {
		return "", volume.SourceNone, fmt.Errorf("malformed zfs get output %q: want 2 columns, got %d", line, len(fields))
	}
	return fields[0], volume.ParseSource(fields[1]), nil
}
