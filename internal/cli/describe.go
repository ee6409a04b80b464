package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcejohnson/rekorder/internal/player"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	Input string
}

// DescribeResult is the JSON payload of describe.
type DescribeResult struct {
	Input string   `json:"input"`
	Lines []string `json:"lines"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print a recording one tune per line",
		Long: `Print every track of a recording with one line per tune. Sub-tracks
such as mocked calls are shown indented beneath their track.

Nothing is replayed: describing has no side effects.

Examples:
  rekorder describe --input run.json
  rekorder describe --input run.json --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "recording to describe (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runDescribe(opts *DescribeOptions, cmd *cobra.Command) error {
	opts.applyDefaults()
	formatter := opts.formatter(cmd)

	p, err := player.New(player.Options{
		Input:       opts.Input,
		Snapshotter: opts.Snapshotter,
		Logger:      opts.log(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to describe recording", err)
	}

	var buf bytes.Buffer
	if err := p.Describe(&buf); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", opts.Input), err)
	}

	if opts.Format == "json" {
		return formatter.Success(DescribeResult{
			Input: opts.Input,
			Lines: strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"),
		})
	}
	_, err = buf.WriteTo(formatter.Writer)
	return err
}
