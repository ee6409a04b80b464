package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/jcejohnson/rekorder/internal/demo"
	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/method"
	"github.com/jcejohnson/rekorder/internal/recorder"
	"github.com/jcejohnson/rekorder/internal/repository"
	"github.com/jcejohnson/rekorder/internal/testutil"
)

const appPath = "/src/app"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemory() *repository.Memory {
	mem := repository.NewMemory()
	mem.Set(repository.Snapshot{
		Path: appPath, HeadName: "main", BranchName: "main",
		Commit:   repository.Commit{SHA: "abcdef0123456789abcdef0123456789abcdef01"},
		Branches: []string{"main"},
	})
	return mem
}

// recordDemo records demo.run(25, 5, 9) with repository state and returns
// the recording's path.
func recordDemo(t *testing.T, mem *repository.Memory) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "run.json")
	rec, err := recorder.New("demo", recorder.Options{
		Output:      out,
		Args:        []string{"rekorder-demo", "record", "run", "25", "5", "9"},
		Clock:       testutil.NewDeterministicClock().Now,
		Logger:      quietLogger(),
		Snapshotter: mem,
	})
	require.NoError(t, err)

	mgr, err := rec.RepositoryManager()
	require.NoError(t, err)
	require.NoError(t, mgr.Record(appPath))
	_, err = rec.Wrap(demo.RunName, demo.Run(rec))(context.Background(), device.Args(25, 5, 9))
	require.NoError(t, err)
	require.NoError(t, mgr.RestoreOnPlayback())
	return out
}

// divergentCatalog registers a demo.run whose division always yields 125.
func divergentCatalog(t *testing.T) *device.Catalog {
	t.Helper()
	c := device.NewCatalog()
	require.NoError(t, c.Register(demo.RunName, func(h device.Host) device.Func {
		return func(ctx context.Context, call device.Call) (any, error) {
			all, err := method.Factory{Host: h}.Everything()
			if err != nil {
				return nil, err
			}
			return all.Wrap(demo.BazName, func(context.Context, device.Call) (any, error) {
				return 125.0, nil
			})(ctx, call)
		}
	}))
	return c
}

func testRootOptions(mem *repository.Memory) *RootOptions {
	return &RootOptions{
		Format:      "text",
		Entrypoints: demo.Catalog(),
		Snapshotter: mem,
		Logger:      quietLogger(),
	}
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
