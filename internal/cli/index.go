package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcejohnson/rekorder/internal/player"
	"github.com/jcejohnson/rekorder/internal/store"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// IndexOptions holds flags for the index command.
type IndexOptions struct {
	*RootOptions
	Inputs   []string
	Database string
}

// IndexedRecording is one entry of the index result.
type IndexedRecording struct {
	store.Recording
	Inserted bool `json:"inserted"`
}

// IndexResult holds the recordings touched by one index run.
type IndexResult struct {
	Recordings []IndexedRecording `json:"recordings"`
	Inserted   int                `json:"inserted"`
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IndexOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Add recordings to a searchable SQLite index",
		Long: `Load each recording and store its tunes in a SQLite index.

Recordings are identified by content: indexing the same recording twice,
even from another path, keeps the first entry.

Examples:
  rekorder index --db index.db --input run.json
  rekorder index --db index.db --input a.json --input b.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Inputs, "input", nil, "recording to index (required, repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runIndex(opts *IndexOptions, cmd *cobra.Command) error {
	opts.applyDefaults()
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result := IndexResult{Recordings: make([]IndexedRecording, 0, len(opts.Inputs))}
	for _, input := range opts.Inputs {
		p, err := player.New(player.Options{Input: input, Snapshotter: opts.Snapshotter, Logger: opts.log()})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to index recording", err)
		}
		tracks, err := p.Load(tape.ModeDescribe)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", input), err)
		}
		rec, inserted, err := st.IndexRecording(ctx, input, tracks)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to index %s", input), err)
		}
		formatter.VerboseLog("%s: %d tunes, digest %s", input, rec.Tunes, rec.Digest)
		result.Recordings = append(result.Recordings, IndexedRecording{Recording: rec, Inserted: inserted})
		if inserted {
			result.Inserted++
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, r := range result.Recordings {
		status := "indexed"
		if !r.Inserted {
			status = "exists "
		}
		fmt.Fprintf(w, "%s %s %s (%d tunes)\n", status, r.ID, r.Path, r.Tunes)
	}
	fmt.Fprintf(w, "%d of %d recording(s) added\n", result.Inserted, len(result.Recordings))
	return nil
}
