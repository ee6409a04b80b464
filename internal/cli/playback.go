package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jcejohnson/rekorder/internal/player"
	"github.com/jcejohnson/rekorder/internal/store"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// PlaybackOptions holds flags for the playback command.
type PlaybackOptions struct {
	*RootOptions
	Input    string
	Output   string
	Database string // optional - record the outcome in this index
}

// PlaybackResult is the payload of a successful playback.
type PlaybackResult struct {
	*player.Summary
	Input       string `json:"input"`
	RecordingID string `json:"recording_id,omitempty"`
}

// NewPlaybackCommand creates the playback command.
func NewPlaybackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlaybackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "playback",
		Short: "Replay a recording and validate the live run against it",
		Long: `Run the recorded routine again under a fresh recorder writing to
--output, comparing every event with the recording as it happens.

Repository state captured in the header is restored first. Mocked calls
are not made again; their recorded results are substituted.

Exit codes:
  0 - The live run matched the recording
  1 - The run diverged, broke a track rule, or the routine failed
  2 - Command error (unreadable recording, unknown routine, etc.)

Examples:
  rekorder playback --input run.json --output replay.json
  rekorder playback --input run.json --output replay.json --db index.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlayback(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "recording to replay (required)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "where to write the new recording (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "index the recording and keep the outcome in this database")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runPlayback(opts *PlaybackOptions, cmd *cobra.Command) error {
	opts.applyDefaults()
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)
	logger := opts.log()

	p, err := player.New(player.Options{
		Input:       opts.Input,
		Output:      opts.Output,
		Entrypoints: opts.Entrypoints,
		Snapshotter: opts.Snapshotter,
		Logger:      logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up playback", err)
	}
	expected, err := p.Load(tape.ModeDescribe)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", opts.Input), err)
	}

	var history *playbackHistory
	if opts.Database != "" {
		history, err = openHistory(ctx, opts.Database, opts.Input, expected)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to index recording", err)
		}
		defer history.Close()
	}

	summary, runErr := p.Playback(ctx)
	if history != nil {
		if err := history.record(ctx, opts.Output, runErr, logger); err != nil {
			return WrapExitError(ExitCommandError, "failed to record playback", err)
		}
	}
	if runErr != nil {
		return formatter.Fail("playback failed", runErr)
	}

	result := PlaybackResult{Summary: summary, Input: opts.Input}
	if history != nil {
		result.RecordingID = history.recording.ID
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Playback matched %s\n", opts.Input)
	fmt.Fprintf(w, "  recorder: %s\n", summary.Recorder)
	fmt.Fprintf(w, "  routine:  %s\n", summary.Entry)
	fmt.Fprintf(w, "  tunes:    %d\n", summary.Tunes)
	fmt.Fprintf(w, "  output:   %s\n", summary.Output)
	if result.RecordingID != "" {
		fmt.Fprintf(w, "  indexed:  %s\n", result.RecordingID)
	}
	return nil
}

// playbackHistory keeps the index open across one playback run.
type playbackHistory struct {
	st        *store.Store
	recording store.Recording
}

func openHistory(ctx context.Context, db, input string, expected *tape.TrackManager) (*playbackHistory, error) {
	st, err := store.Open(db)
	if err != nil {
		return nil, err
	}
	rec, _, err := st.IndexRecording(ctx, input, expected)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &playbackHistory{st: st, recording: rec}, nil
}

func (h *playbackHistory) record(ctx context.Context, output string, runErr error, logger *slog.Logger) error {
	pb := store.Playback{RecordingID: h.recording.ID, Output: output, Outcome: outcomeOf(runErr)}
	if runErr != nil {
		pb.Message = runErr.Error()
	}
	pb, err := h.st.WritePlayback(ctx, pb)
	if err != nil {
		return err
	}
	logger.Debug("playback recorded", "recording", h.recording.ID, "run", pb.Seq, "outcome", string(pb.Outcome))
	return nil
}

func (h *playbackHistory) Close() error {
	return h.st.Close()
}

// outcomeOf classifies the result of a playback run for the history.
func outcomeOf(err error) store.Outcome {
	switch {
	case err == nil:
		return store.OutcomePassed
	case tape.IsValidationError(err), tape.IsLegalityError(err), tape.IsReuseError(err):
		return store.OutcomeDiverged
	default:
		return store.OutcomeFailed
	}
}
