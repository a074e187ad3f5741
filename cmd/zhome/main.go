// Command zhome identifies, unlocks and mounts a user's encrypted home
// dataset at login.
//
// It is designed to run from an authentication hook (pam_exec style): the
// hook sets the username in an environment variable and writes the user's
// passphrase to stdin. The process exit code tells the hook what happened:
//
//	0  the user's home dataset is mounted and verified
//	1  a hard failure; the mount did not happen or could not be verified
//	2  the user has no managed encrypted home; nothing was done
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zhome-project/zhome/internal/logger"
	"github.com/zhome-project/zhome/pkg/config"
	"github.com/zhome-project/zhome/pkg/resolve"
	"github.com/zhome-project/zhome/pkg/secret"
	"github.com/zhome-project/zhome/pkg/session"
	"github.com/zhome-project/zhome/pkg/volume"
)

// Exit codes observable by the calling hook.
const (
	exitMounted  = 0
	exitFailure  = 1
	exitNoVolume = 2
)

// exitCodeError carries an exit code through cobra's error return.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCommand().Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				log.Error().Err(exitErr.err).Msg("run failed")
			}
			return exitErr.code
		}
		log.Error().Err(err).Msg("run failed")
		return exitFailure
	}
	return exitMounted
}

// newRootCommand assembles the CLI.
func newRootCommand() *cobra.Command {
	configPath := new(string)

	root := &cobra.Command{
		Use:           "zhome",
		Short:         "Mount a user's encrypted home dataset at login",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addConfigFlag(root.PersistentFlags(), configPath)

	root.AddCommand(
		newMountCommand(configPath),
		newResolveCommand(configPath),
		newConfigCommand(),
	)

	// Invoked with no subcommand, behave as the hook entry point.
	root.RunE = newMountCommand(configPath).RunE

	return root
}

// newMountCommand builds the hook entry point: read the passphrase, load
// configuration, resolve and mount.
func newMountCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mount",
		Short: "Unlock and mount the logging-in user's home dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The passphrase stream is single-use: consume it in full
			// before anything else runs.
			sec, err := secret.ReadOnce(cmd.InOrStdin())
			if err != nil {
				return &exitCodeError{code: exitFailure, err: err}
			}
			defer sec.Zero()

			cfg, err := loadAndSetup(*configPath)
			if err != nil {
				return &exitCodeError{code: exitFailure, err: err}
			}

			user := os.Getenv(cfg.Hook.UserEnv)
			if user == "" {
				return &exitCodeError{code: exitFailure,
					err: fmt.Errorf("environment variable %s is empty; not called from a login hook?", cfg.Hook.UserEnv)}
			}

			s, err := buildSession(cfg)
			if err != nil {
				return &exitCodeError{code: exitFailure, err: err}
			}

			outcome, err := s.Run(cmd.Context(), user, sec)
			if err != nil {
				return &exitCodeError{code: exitFailure, err: err}
			}
			if outcome == session.OutcomeNoVolume {
				return &exitCodeError{code: exitNoVolume}
			}
			return nil
		},
	}
}

// newResolveCommand builds a side-effect-free dry run: print the dataset
// that would be mounted for a user, or nothing.
func newResolveCommand(configPath *string) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the dataset that would be mounted for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAndSetup(*configPath)
			if err != nil {
				return &exitCodeError{code: exitFailure, err: err}
			}
			if user == "" {
				user = os.Getenv(cfg.Hook.UserEnv)
			}
			if user == "" {
				return &exitCodeError{code: exitFailure, err: fmt.Errorf("no user given; use --user or set %s", cfg.Hook.UserEnv)}
			}

			manager, err := config.CreateVolumeManager(&cfg.Volumes)
			if err != nil {
				return &exitCodeError{code: exitFailure, err: err}
			}

			catalog, err := manager.ListProperties(cmd.Context(), []string{cfg.Properties.Owner, volume.PropCanMount})
			if err != nil {
				return &exitCodeError{code: exitFailure, err: err}
			}

			name, ok := resolve.Resolve(catalog, cfg.Properties.Owner, user)
			if !ok {
				return &exitCodeError{code: exitNoVolume}
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "username to resolve (defaults to the hook environment variable)")
	return cmd
}

// newConfigCommand groups configuration helpers.
func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Print a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.WriteExample(cmd.OutOrStdout())
		},
	})
	return cmd
}

func addConfigFlag(fs *pflag.FlagSet, configPath *string) {
	fs.StringVarP(configPath, "config", "c", "", "path to configuration file")
}

// loadAndSetup loads configuration and configures logging from it.
func loadAndSetup(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSession wires the session from configuration.
func buildSession(cfg *config.Config) (*session.Session, error) {
	manager, err := config.CreateVolumeManager(&cfg.Volumes)
	if err != nil {
		return nil, err
	}

	opts := []session.Option{session.WithOwnerProperty(cfg.Properties.Owner)}
	if cfg.Hook.VerifyMountTable {
		opts = append(opts, session.WithMountTable(session.SystemMountTable{}))
	}
	return session.New(manager, opts...), nil
}
