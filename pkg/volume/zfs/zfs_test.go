package zfs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhome-project/zhome/pkg/volume"
)

// fakeRunner returns canned results and records every invocation.
type fakeRunner struct {
	stdout []byte
	err    error

	calls [][]string
	stdin []byte
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	f.stdin = stdin
	return f.stdout, f.err
}

func cmdErr(stderr string) error {
	return &CommandError{Args: []string{"test"}, Stderr: stderr, Err: errors.New("exit status 1")}
}

func TestListProperties(t *testing.T) {
	t.Run("ParsesTabSeparatedOutput", func(t *testing.T) {
		run := &fakeRunner{stdout: []byte(
			"rpool/home\tcanmount\ton\tdefault\n" +
				"rpool/home/alice\tzhome:owner\talice\tlocal\n" +
				"rpool/home/alice\tcanmount\tnoauto\tlocal\n" +
				"rpool/home/alice/var\tzhome:owner\talice\tinherited from rpool/home/alice\n",
		)}
		m := New(WithRunner(run))

		records, err := m.ListProperties(context.Background(), []string{"zhome:owner", "canmount"})
		require.NoError(t, err)
		require.Len(t, records, 4)

		assert.Equal(t, volume.PropertyRecord{
			Name: "rpool/home/alice", Key: "zhome:owner", Value: "alice", Source: volume.SourceLocal,
		}, records[1])
		assert.Equal(t, volume.SourceInherited, records[3].Source)
		assert.Equal(t, volume.SourceDefault, records[0].Source)

		require.Len(t, run.calls, 1)
		assert.Equal(t, []string{
			"get", "-H", "-o", "name,property,value,source", "-t", "filesystem", "zhome:owner,canmount",
		}, run.calls[0])
	})

	t.Run("EmptyOutput", func(t *testing.T) {
		m := New(WithRunner(&fakeRunner{stdout: nil}))
		records, err := m.ListProperties(context.Background(), []string{"canmount"})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("MalformedLine", func(t *testing.T) {
		m := New(WithRunner(&fakeRunner{stdout: []byte("only\ttwo\n")}))
		_, err := m.ListProperties(context.Background(), []string{"canmount"})
		assert.Error(t, err)
	})

	t.Run("RequiresKeys", func(t *testing.T) {
		m := New(WithRunner(&fakeRunner{}))
		_, err := m.ListProperties(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestGetProperty(t *testing.T) {
	t.Run("ParsesValueAndSource", func(t *testing.T) {
		run := &fakeRunner{stdout: []byte("/home/alice\tlocal\n")}
		m := New(WithRunner(run))

		value, source, err := m.GetProperty(context.Background(), "rpool/home/alice", "mountpoint")
		require.NoError(t, err)
		assert.Equal(t, "/home/alice", value)
		assert.Equal(t, volume.SourceLocal, source)
		assert.Equal(t, []string{"get", "-H", "-o", "value,source", "mountpoint", "rpool/home/alice"}, run.calls[0])
	})

	t.Run("MissingDataset", func(t *testing.T) {
		run := &fakeRunner{err: cmdErr("cannot open 'rpool/nope': dataset does not exist")}
		m := New(WithRunner(run))

		_, _, err := m.GetProperty(context.Background(), "rpool/nope", "mountpoint")
		assert.ErrorIs(t, err, volume.ErrNotFound)
	})
}

func TestLoadKey(t *testing.T) {
	t.Run("FeedsSecretOnStdin", func(t *testing.T) {
		run := &fakeRunner{}
		m := New(WithRunner(run))

		require.NoError(t, m.LoadKey(context.Background(), "rpool/home/alice", []byte("hunter2")))
		assert.Equal(t, []string{"load-key", "rpool/home/alice"}, run.calls[0])
		assert.Equal(t, []byte("hunter2"), run.stdin)
	})

	t.Run("AlreadyLoadedIsBenign", func(t *testing.T) {
		run := &fakeRunner{err: cmdErr("Key load error: Key already loaded for 'rpool/home/alice'.")}
		m := New(WithRunner(run))

		err := m.LoadKey(context.Background(), "rpool/home/alice", []byte("hunter2"))
		assert.ErrorIs(t, err, volume.ErrKeyAlreadyLoaded)
	})

	t.Run("WrongKeyIsFatal", func(t *testing.T) {
		run := &fakeRunner{err: cmdErr("Key load error: Incorrect key provided for 'rpool/home/alice'.")}
		m := New(WithRunner(run))

		err := m.LoadKey(context.Background(), "rpool/home/alice", []byte("wrong"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, volume.ErrKeyAlreadyLoaded)
	})
}

func TestMount(t *testing.T) {
	t.Run("Mounts", func(t *testing.T) {
		run := &fakeRunner{}
		m := New(WithRunner(run))

		require.NoError(t, m.Mount(context.Background(), "rpool/home/alice"))
		assert.Equal(t, []string{"mount", "rpool/home/alice"}, run.calls[0])
	})

	t.Run("AlreadyMountedIsBenign", func(t *testing.T) {
		run := &fakeRunner{err: cmdErr("cannot mount 'rpool/home/alice': filesystem already mounted")}
		m := New(WithRunner(run))

		err := m.Mount(context.Background(), "rpool/home/alice")
		assert.ErrorIs(t, err, volume.ErrAlreadyMounted)
	})

	t.Run("OtherFailuresSurface", func(t *testing.T) {
		run := &fakeRunner{err: cmdErr("cannot mount 'rpool/home/alice': encryption key not loaded")}
		m := New(WithRunner(run))

		err := m.Mount(context.Background(), "rpool/home/alice")
		require.Error(t, err)
		assert.NotErrorIs(t, err, volume.ErrAlreadyMounted)
	})
}

func TestCommandError(t *testing.T) {
	err := &CommandError{
		Args:   []string{"mount", "rpool/home/alice"},
		Stderr: "cannot mount 'rpool/home/alice': permission denied\n",
		Err:    errors.New("exit status 1"),
	}
	assert.Contains(t, err.Error(), "permission denied")
	assert.Contains(t, err.Error(), "mount rpool/home/alice")
}
