// Package cli implements the rekorder command line: describing and
// replaying recordings, and keeping a searchable index of them.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jcejohnson/rekorder/internal/config"
	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/logging"
	"github.com/jcejohnson/rekorder/internal/repository"
)

// RootOptions holds global flags for all commands, plus what the binary
// provides and what PersistentPreRunE sets up.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	LogFile    string

	// Entrypoints are the routines playback can run again. Binaries built
	// around an instrumented program register its routines here.
	Entrypoints *device.Catalog
	// Snapshotter restores repository state during playback. Nil selects
	// the git implementation.
	Snapshotter repository.Snapshotter

	// Config and Logger are ready once a subcommand runs.
	Config config.Config
	Logger *slog.Logger

	logger *logging.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rekorder CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	opts.applyDefaults()

	cmd := &cobra.Command{
		Use:   "rekorder",
		Short: "rekorder - record, describe and replay program runs",
		Long: `Record the interesting events of a command-line program into a
phase-segmented recording, then describe it or replay it while checking
every live event against the recording.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.teardown()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "also write JSON logs to this file")

	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewPlaybackCommand(opts))
	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

func (o *RootOptions) applyDefaults() {
	if o.Entrypoints == nil {
		o.Entrypoints = device.NewCatalog()
	}
	if o.Snapshotter == nil {
		o.Snapshotter = repository.Git{}
	}
}

// setup loads the configuration and builds the logger. Flags win over the
// configuration file.
func (o *RootOptions) setup(stderr io.Writer) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	o.Config = cfg
	o.logger = logger
	o.Logger = logger.Logger
	return nil
}

func (o *RootOptions) teardown() error {
	if o.logger == nil {
		return nil
	}
	err := o.logger.Close()
	o.logger = nil
	return err
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// log returns the configured logger, or the default one when a
// subcommand runs without the root command.
func (o *RootOptions) log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
