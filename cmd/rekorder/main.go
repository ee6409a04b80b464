// Command rekorder describes, replays and indexes recordings.
//
// Playback needs the recorded routine to be registered, so this binary
// only replays recordings whose entry needs no application code. Programs
// that record themselves build their own binary around cli.NewRootCommand
// with their entrypoints, as cmd/rekorder-demo does.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jcejohnson/rekorder/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := cli.NewRootCommand(&cli.RootOptions{})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "rekorder: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
