package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhome-project/zhome/pkg/volume"
)

const ownerKey = "zhome:owner"

func ownerRec(name, user string, src volume.Source) volume.PropertyRecord {
	return volume.PropertyRecord{Name: name, Key: ownerKey, Value: user, Source: src}
}

func canMountRec(name, value string, src volume.Source) volume.PropertyRecord {
	return volume.PropertyRecord{Name: name, Key: volume.PropCanMount, Value: value, Source: src}
}

// fullMatch returns both observations that make name a candidate for user.
func fullMatch(name, user string) []volume.PropertyRecord {
	return []volume.PropertyRecord{
		ownerRec(name, user, volume.SourceLocal),
		canMountRec(name, volume.CanMountNoAuto, volume.SourceLocal),
	}
}

func TestResolve(t *testing.T) {
	t.Run("SingleCandidate", func(t *testing.T) {
		got, ok := Resolve(fullMatch("rpool/home/alice", "alice"), ownerKey, "alice")
		require.True(t, ok)
		assert.Equal(t, "rpool/home/alice", got)
	})

	t.Run("NoCandidateIsNotAnError", func(t *testing.T) {
		_, ok := Resolve(fullMatch("rpool/home/alice", "alice"), ownerKey, "bob")
		assert.False(t, ok)
	})

	t.Run("EmptyCatalog", func(t *testing.T) {
		_, ok := Resolve(nil, ownerKey, "alice")
		assert.False(t, ok)
	})

	t.Run("OtherUsersVolumeNeverMatches", func(t *testing.T) {
		catalog := append(fullMatch("rpool/home/bob", "bob"),
			fullMatch("rpool/home/alice", "alice")...)
		got, ok := Resolve(catalog, ownerKey, "alice")
		require.True(t, ok)
		assert.Equal(t, "rpool/home/alice", got)
	})

	t.Run("InheritedOwnershipNotAuthoritative", func(t *testing.T) {
		catalog := []volume.PropertyRecord{
			ownerRec("rpool/home/alice", "alice", volume.SourceInherited),
			canMountRec("rpool/home/alice", volume.CanMountNoAuto, volume.SourceLocal),
		}
		_, ok := Resolve(catalog, ownerKey, "alice")
		assert.False(t, ok)
	})

	t.Run("DefaultCanMountNotAuthoritative", func(t *testing.T) {
		catalog := []volume.PropertyRecord{
			ownerRec("rpool/home/alice", "alice", volume.SourceLocal),
			canMountRec("rpool/home/alice", volume.CanMountNoAuto, volume.SourceDefault),
		}
		_, ok := Resolve(catalog, ownerKey, "alice")
		assert.False(t, ok)
	})

	t.Run("OwnershipAloneInsufficient", func(t *testing.T) {
		catalog := []volume.PropertyRecord{
			ownerRec("rpool/home/alice", "alice", volume.SourceLocal),
		}
		_, ok := Resolve(catalog, ownerKey, "alice")
		assert.False(t, ok)
	})

	t.Run("CanMountAloneInsufficient", func(t *testing.T) {
		catalog := []volume.PropertyRecord{
			canMountRec("rpool/home/alice", volume.CanMountNoAuto, volume.SourceLocal),
		}
		_, ok := Resolve(catalog, ownerKey, "alice")
		assert.False(t, ok)
	})

	t.Run("CanMountOnInsufficient", func(t *testing.T) {
		catalog := []volume.PropertyRecord{
			ownerRec("rpool/home/alice", "alice", volume.SourceLocal),
			canMountRec("rpool/home/alice", "on", volume.SourceLocal),
		}
		_, ok := Resolve(catalog, ownerKey, "alice")
		assert.False(t, ok)
	})

	t.Run("AncestorPreferred", func(t *testing.T) {
		catalog := append(fullMatch("rpool/a", "u"), fullMatch("rpool/a/b", "u")...)
		got, ok := Resolve(catalog, ownerKey, "u")
		require.True(t, ok)
		assert.Equal(t, "rpool/a", got)
	})

	t.Run("AncestorPreferredRegardlessOfOrder", func(t *testing.T) {
		catalog := append(fullMatch("rpool/a/b", "u"), fullMatch("rpool/a", "u")...)
		got, ok := Resolve(catalog, ownerKey, "u")
		require.True(t, ok)
		assert.Equal(t, "rpool/a", got)
	})

	t.Run("EqualLengthTieBreaksLexicographically", func(t *testing.T) {
		catalog := append(fullMatch("rpool/b", "u"), fullMatch("rpool/a", "u")...)
		got, ok := Resolve(catalog, ownerKey, "u")
		require.True(t, ok)
		assert.Equal(t, "rpool/a", got)

		// Same catalog, reversed order.
		catalog = append(fullMatch("rpool/a", "u"), fullMatch("rpool/b", "u")...)
		got, ok = Resolve(catalog, ownerKey, "u")
		require.True(t, ok)
		assert.Equal(t, "rpool/a", got)
	})

	t.Run("SeniorityIsCharacterCount", func(t *testing.T) {
		// "rpool/ä" is seven characters but eight bytes; it must still
		// beat the eight-character "rpool/ab".
		catalog := append(fullMatch("rpool/ab", "u"), fullMatch("rpool/ä", "u")...)
		got, ok := Resolve(catalog, ownerKey, "u")
		require.True(t, ok)
		assert.Equal(t, "rpool/ä", got)
	})

	t.Run("DuplicateObservationsCollapse", func(t *testing.T) {
		once := fullMatch("rpool/home/alice", "alice")
		twice := append(append([]volume.PropertyRecord{}, once...), once...)

		gotOnce, okOnce := Resolve(once, ownerKey, "alice")
		gotTwice, okTwice := Resolve(twice, ownerKey, "alice")
		require.True(t, okOnce)
		require.True(t, okTwice)
		assert.Equal(t, gotOnce, gotTwice)
	})

	t.Run("Deterministic", func(t *testing.T) {
		catalog := append(fullMatch("rpool/a/b", "u"), fullMatch("rpool/a", "u")...)
		catalog = append(catalog, fullMatch("rpool/c", "u")...)
		first, ok := Resolve(catalog, ownerKey, "u")
		require.True(t, ok)
		for i := 0; i < 50; i++ {
			got, ok := Resolve(catalog, ownerKey, "u")
			require.True(t, ok)
			require.Equal(t, first, got)
		}
	})

	t.Run("CatalogNotMutated", func(t *testing.T) {
		catalog := append(fullMatch("rpool/a/b", "u"), fullMatch("rpool/a", "u")...)
		snapshot := append([]volume.PropertyRecord{}, catalog...)
		_, _ = Resolve(catalog, ownerKey, "u")
		assert.Equal(t, snapshot, catalog)
	})
}
