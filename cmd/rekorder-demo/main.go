// Command rekorder-demo is a small instrumented program. It records its
// own routines and carries the full rekorder CLI with those routines
// registered, so its recordings can be replayed:
//
//	rekorder-demo record -o run.json run 25 5 9
//	rekorder-demo describe --input run.json
//	rekorder-demo playback --input run.json --output replay.json
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jcejohnson/rekorder/internal/cli"
	"github.com/jcejohnson/rekorder/internal/demo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := &cli.RootOptions{Entrypoints: demo.Catalog()}
	root := cli.NewRootCommand(opts)
	root.Use = "rekorder-demo"
	root.AddCommand(cli.NewRecordCommand(opts))

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "rekorder-demo: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
