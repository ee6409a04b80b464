package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/recorder"
	"github.com/jcejohnson/rekorder/internal/repository"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Name   string
	Output string
	Repos  []string

	// Args is the command line stored in the recording. Nil means os.Args.
	Args []string
}

// RecordResult is the payload of a successful recording.
type RecordResult struct {
	Recorder string `json:"recorder"`
	Routine  string `json:"routine"`
	Result   any    `json:"result"`
	Output   string `json:"output"`
	Tunes    int    `json:"tunes"`
}

// NewRecordCommand creates the record command. Only binaries that register
// entrypoints have anything to record, so the root command leaves it out.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record <routine> [args...]",
		Short: "Run a routine and record it",
		Long: `Run one of the registered routines under a recorder. The header
captures the recorder, the command line and the state of every repository
named with --repo (or repositories.paths in the configuration).

Numeric arguments are passed as numbers, everything else as strings.

Exit codes:
  0 - The routine ran and the recording is complete
  1 - The routine failed; the recording holds the failure
  2 - Command error (unknown routine, no output path, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "recorder name (default recorder.name from the configuration)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "where to write the recording (default recorder.output)")
	cmd.Flags().StringSliceVar(&opts.Repos, "repo", nil, "repository to capture in the header (repeatable)")

	return cmd
}

func runRecord(opts *RecordOptions, cmd *cobra.Command, args []string) error {
	opts.applyDefaults()
	formatter := opts.formatter(cmd)

	name := firstNonEmpty(opts.Name, opts.Config.Recorder.Name, "rekorder")
	output := firstNonEmpty(opts.Output, opts.Config.Recorder.Output)
	if output == "" {
		return NewExitError(ExitCommandError, "no output: pass --output or set recorder.output")
	}
	repos := opts.Repos
	if len(repos) == 0 {
		repos = opts.Config.Repositories.Paths
	}

	qualname, ep, err := lookupRoutine(opts.Entrypoints, args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown routine", err)
	}

	argv := opts.Args
	if argv == nil {
		argv = os.Args
	}
	rec, err := recorder.New(name, recorder.Options{
		Mode:        tape.ModeRecord,
		Output:      output,
		Args:        argv,
		Logger:      opts.log(),
		Snapshotter: opts.Snapshotter,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start recorder", err)
	}

	var mgr *repository.Manager
	if len(repos) > 0 {
		if mgr, err = rec.RepositoryManager(); err != nil {
			return WrapExitError(ExitCommandError, "failed to set up repository capture", err)
		}
		if err := mgr.Record(repos...); err != nil {
			return WrapExitError(ExitCommandError, "failed to capture repository state", err)
		}
	}

	result, err := rec.Wrap(qualname, ep(rec))(cmd.Context(), device.Args(parseArgs(args[1:])...))
	if err != nil {
		return formatter.Fail(fmt.Sprintf("%s failed (recorded in %s)", qualname, output), err)
	}
	if mgr != nil {
		if err := mgr.RestoreOnPlayback(); err != nil {
			return WrapExitError(ExitCommandError, "failed to record repository state", err)
		}
	}

	res := RecordResult{
		Recorder: name,
		Routine:  qualname,
		Result:   result,
		Output:   output,
		Tunes:    rec.Tracks().Len(),
	}
	if opts.Format == "json" {
		return formatter.Success(res)
	}
	fmt.Fprintf(formatter.Writer, "%s -> %v\n", qualname, result)
	fmt.Fprintf(formatter.Writer, "recorded %d tunes to %s\n", res.Tunes, output)
	return nil
}

// lookupRoutine finds a routine by qualified name, or by its last
// component when that is unambiguous.
func lookupRoutine(catalog *device.Catalog, name string) (string, device.Entrypoint, error) {
	if ep, ok := catalog.Lookup(name); ok {
		return name, ep, nil
	}
	var matches []string
	for _, q := range catalog.Names() {
		if device.ParseFuncID(q).Name == name {
			matches = append(matches, q)
		}
	}
	switch len(matches) {
	case 1:
		ep, _ := catalog.Lookup(matches[0])
		return matches[0], ep, nil
	case 0:
		return "", nil, fmt.Errorf("%q is not registered (known: %s)", name, strings.Join(catalog.Names(), ", "))
	default:
		return "", nil, fmt.Errorf("%q is ambiguous: %s", name, strings.Join(matches, ", "))
	}
}

// parseArgs converts command-line arguments: integers, then floats, then
// strings.
func parseArgs(raw []string) []any {
	out := make([]any, len(raw))
	for i, s := range raw {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out[i] = n
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			out[i] = f
		} else {
			out[i] = s
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
