// Package session orchestrates one login's unlock-and-mount sequence
// against the volume capability.
//
// A session owns no state of its own: the property catalog is read fresh
// on every run and mount state is queried live, so re-running a session is
// always safe. The only mutations it triggers, key-load and mount, are
// idempotent in the capability; everything else is checks.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhome-project/zhome/pkg/resolve"
	"github.com/zhome-project/zhome/pkg/secret"
	"github.com/zhome-project/zhome/pkg/volume"
)

// DefaultOwnerProperty is the user property that tags a dataset with the
// account allowed to mount it at login.
const DefaultOwnerProperty = "zhome:owner"

// Outcome is the observable result of a run. Hard failures are reported
// through the error return instead; translation to a process exit code
// happens only at the command boundary.
type Outcome int

const (
	// OutcomeNone means the run aborted before reaching a result.
	OutcomeNone Outcome = iota

	// OutcomeNoVolume means the user has no managed encrypted home.
	// A no-op, not a failure.
	OutcomeNoVolume

	// OutcomeMounted means the user's home dataset is mounted and verified.
	OutcomeMounted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoVolume:
		return "no-volume"
	case OutcomeMounted:
		return "mounted"
	default:
		return "none"
	}
}

// Session drives the unlock-and-mount sequence. Construct with New.
type Session struct {
	manager  volume.Manager
	lister   DirLister
	table    MountTable
	ownerKey string
}

// An Option configures a Session.
type Option func(*Session)

// WithOwnerProperty overrides the ownership property key.
func WithOwnerProperty(key string) Option {
	return func(s *Session) { s.ownerKey = key }
}

// WithDirLister substitutes the directory lister. Intended for tests.
func WithDirLister(l DirLister) Option {
	return func(s *Session) { s.lister = l }
}

// WithMountTable enables the post-mount mount-table cross-check.
func WithMountTable(t MountTable) Option {
	return func(s *Session) { s.table = t }
}

// New creates a Session over the given capability.
func New(manager volume.Manager, opts ...Option) *Session {
	s := &Session{
		manager:  manager,
		lister:   osLister{},
		ownerKey: DefaultOwnerProperty,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run performs one login's sequence for user: resolve the target dataset,
// gate on mountpoint safety, load the key, mount, and verify.
//
// The caller retains ownership of sec and is responsible for zeroing it;
// Run only passes its bytes to the key-load call and never logs them.
func (s *Session) Run(ctx context.Context, user string, sec *secret.Secret) (Outcome, error) {
	runLog := log.With().
		Str("run_id", uuid.NewString()).
		Str("user", user).
		Logger()

	catalog, err := s.manager.ListProperties(ctx, []string{s.ownerKey, volume.PropCanMount})
	if err != nil {
		return OutcomeNone, &OperationError{Stage: "property enumeration", Err: err}
	}

	name, ok := resolve.Resolve(catalog, s.ownerKey, user)
	if !ok {
		runLog.Info().Msg("no managed encrypted home for user, nothing to do")
		return OutcomeNoVolume, nil
	}
	runLog = runLog.With().Str("dataset", name).Logger()
	runLog.Debug().Msg("resolved target dataset")

	mountpoint, _, err := s.manager.GetProperty(ctx, name, volume.PropMountpoint)
	if err != nil {
		return OutcomeNone, &ConfigError{Dataset: name, Reason: fmt.Sprintf("cannot determine mountpoint: %v", err)}
	}
	if !usableMountpoint(mountpoint) {
		return OutcomeNone, &ConfigError{Dataset: name, Reason: fmt.Sprintf("mountpoint %q is not mountable", mountpoint)}
	}
	runLog = runLog.With().Str("mountpoint", mountpoint).Logger()

	mounted, _, err := s.manager.GetProperty(ctx, name, volume.PropMounted)
	if err != nil {
		return OutcomeNone, &OperationError{Dataset: name, Stage: "mount state query", Err: err}
	}

	if mounted == "yes" {
		runLog.Warn().Msg("dataset already mounted, skipping unlock and mount")
	} else {
		if err := s.unlockAndMount(ctx, runLog, name, mountpoint, sec); err != nil {
			return OutcomeNone, err
		}
	}

	if err := s.verifyMounted(ctx, name, mountpoint); err != nil {
		return OutcomeNone, err
	}

	runLog.Info().Msg("encrypted home mounted and verified")
	return OutcomeMounted, nil
}

// unlockAndMount is the mutating half of the run: the pre-mount safety
// gate, key-load, mount, and the mounted re-query.
func (s *Session) unlockAndMount(ctx context.Context, runLog zerolog.Logger, name, mountpoint string, sec *secret.Secret) error {
	entries, err := s.listDir(mountpoint)
	if err != nil {
		return &OperationError{Dataset: name, Stage: "mountpoint inspection", Err: err}
	}
	if len(entries) > 0 {
		return &UnsafeStateError{Dataset: name, Mountpoint: mountpoint, Entries: len(entries)}
	}
	runLog.Debug().Msg("mountpoint is empty, safe to mount")

	switch err := s.manager.LoadKey(ctx, name, sec.Bytes()); {
	case err == nil:
		runLog.Debug().Msg("encryption key loaded")
	case errors.Is(err, volume.ErrKeyAlreadyLoaded):
		runLog.Info().Msg("encryption key was already loaded")
	default:
		return &OperationError{Dataset: name, Stage: "key load", Err: err}
	}

	switch err := s.manager.Mount(ctx, name); {
	case err == nil:
		runLog.Debug().Msg("dataset mounted")
	case errors.Is(err, volume.ErrAlreadyMounted):
		runLog.Warn().Msg("dataset was mounted concurrently")
	default:
		return &OperationError{Dataset: name, Stage: "mount", Err: err}
	}

	mounted, _, err := s.manager.GetProperty(ctx, name, volume.PropMounted)
	if err != nil {
		return &OperationError{Dataset: name, Stage: "mount verification", Err: err}
	}
	if mounted != "yes" {
		return &OperationError{Dataset: name, Stage: "mount verification",
			Err: fmt.Errorf("dataset reports mounted=%q after mount", mounted)}
	}
	return nil
}

// verifyMounted is the post-condition: a freshly mounted encrypted home is
// expected to contain at least something, and when a mount table is wired
// the kernel must agree the path is a mountpoint.
func (s *Session) verifyMounted(_ context.Context, name, mountpoint string) error {
	entries, err := s.listDir(mountpoint)
	if err != nil {
		return &OperationError{Dataset: name, Stage: "post-mount verification", Err: err}
	}
	if len(entries) == 0 {
		return &OperationError{Dataset: name, Stage: "post-mount verification",
			Err: fmt.Errorf("mountpoint %s is empty after mount", mountpoint)}
	}

	if s.table != nil {
		present, err := s.table.Contains(mountpoint)
		if err != nil {
			return &OperationError{Dataset: name, Stage: "mount table verification", Err: err}
		}
		if !present {
			return &OperationError{Dataset: name, Stage: "mount table verification",
				Err: fmt.Errorf("%s is absent from the system mount table", mountpoint)}
		}
	}
	return nil
}

// listDir treats a missing directory as empty: zfs creates the mountpoint
// on mount, so absence before mounting is the normal clean state.
func (s *Session) listDir(path string) ([]string, error) {
	entries, err := s.lister.List(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}

// usableMountpoint rejects the zfs mountpoint values that cannot be
// mounted by `zfs mount`: unset, "none", and "legacy".
func usableMountpoint(mountpoint string) bool {
	switch mountpoint {
	case "", "-", "none", "legacy":
		return false
	}
	return true
}
