// Package resolve selects the single dataset to unlock and mount for a
// logging-in user from a flat catalog of property observations.
package resolve

import (
	"sort"
	"unicode/utf8"

	"github.com/zhome-project/zhome/pkg/volume"
)

// Resolve picks the target dataset for user from catalog.
//
// A dataset qualifies only when the catalog carries BOTH of these
// observations for it, each set locally on the dataset itself:
//
//   - the ownership property (ownerKey) equal to user
//   - canmount equal to "noauto"
//
// Ownership tags owned by other users, and ownership or canmount values
// that are inherited or defaulted rather than locally set, never match.
// A dataset carrying only one of the two required observations never
// matches either, even when it is the sole candidate.
//
// When several datasets qualify (typically a parent and a descendant that
// re-set the tag locally), the shortest name wins: encryption and key
// policy live at the parent, so the most senior ancestor is the target.
// Equal-length names tie-break lexicographically, which keeps the result
// stable under any catalog ordering.
//
// The boolean result is false when no dataset qualifies. That is a normal
// outcome meaning the user has no managed encrypted home, not an error.
// Resolve is a pure function: it never mutates catalog and imposes its own
// ordering, so duplicate observations and arbitrary input order are fine.
func Resolve(catalog []volume.PropertyRecord, ownerKey, user string) (string, bool) {
	const (
		matchedOwner = 1 << iota
		matchedCanMount
	)

	matches := make(map[string]int)
	for _, rec := range catalog {
		if rec.Source != volume.SourceLocal {
			continue
		}
		switch {
		case rec.Key == ownerKey && rec.Value == user:
			matches[rec.Name] |= matchedOwner
		case rec.Key == volume.PropCanMount && rec.Value == volume.CanMountNoAuto:
			matches[rec.Name] |= matchedCanMount
		}
	}

	var candidates []string
	for name, m := range matches {
		if m == matchedOwner|matchedCanMount {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		// Seniority is character count, not byte length; the two differ
		// for dataset names with multi-byte runes.
		li, lj := utf8.RuneCountInString(candidates[i]), utf8.RuneCountInString(candidates[j])
		if li != lj {
			return li < lj
		}
		return candidates[i] < candidates[j]
	})

	return candidates[0], true
}
