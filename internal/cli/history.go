package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcejohnson/rekorder/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database    string
	RecordingID string // optional - one recording only
}

// RecordingHistory is an indexed recording with its playback runs.
type RecordingHistory struct {
	store.Recording
	Playbacks []store.Playback `json:"playbacks"`
}

// HistoryResult holds the history of every listed recording.
type HistoryResult struct {
	Recordings []RecordingHistory `json:"recordings"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List indexed recordings and their playback runs",
		Long: `List the recordings of an index in the order they were indexed,
each followed by the playback runs recorded with playback --db.

Examples:
  rekorder history --db index.db
  rekorder history --db index.db --recording 0190f3c4-...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RecordingID, "recording", "", "show one recording only")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	opts.applyDefaults()
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var recordings []store.Recording
	if opts.RecordingID != "" {
		rec, err := st.ReadRecording(ctx, opts.RecordingID)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("no recording %s in %s", opts.RecordingID, opts.Database))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read recording", err)
		}
		recordings = []store.Recording{rec}
	} else if recordings, err = st.ListRecordings(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to list recordings", err)
	}

	result := HistoryResult{Recordings: make([]RecordingHistory, 0, len(recordings))}
	for _, rec := range recordings {
		runs, err := st.ReadHistory(ctx, rec.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read history of %s", rec.ID), err)
		}
		result.Recordings = append(result.Recordings, RecordingHistory{Recording: rec, Playbacks: runs})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Recordings) == 0 {
		fmt.Fprintln(w, "No recordings indexed.")
		return nil
	}
	for _, rh := range result.Recordings {
		entry := rh.Entry
		if entry == "" {
			entry = "-"
		}
		fmt.Fprintf(w, "%s %s %s %s (%d tunes, recorded %s)\n",
			rh.ID, rh.Recorder, entry, rh.Path, rh.Tunes, rh.StartedAt().UTC().Format(time.RFC3339))
		if len(rh.Playbacks) == 0 {
			fmt.Fprintln(w, "  never played back")
		}
		for _, pb := range rh.Playbacks {
			line := fmt.Sprintf("  #%d %-8s -> %s", pb.Seq, pb.Outcome, pb.Output)
			if pb.Message != "" {
				msg, _, _ := strings.Cut(pb.Message, "\n")
				line += ": " + msg
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}
