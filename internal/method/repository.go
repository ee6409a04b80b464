package method

import (
	"context"
	"fmt"
	"strings"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/repository"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// Repository records the state of a set of repositories around a call.
//
// In validate mode it first puts every repository back to the state the
// expected tune recorded, so the call sees the same sources it saw then.
type Repository struct {
	device.Base
	when  tape.When
	paths []string
	snap  repository.Snapshotter
}

// NewRepository creates a Repository wrapper. NA selects BEFORE and no
// paths selects the working directory.
func NewRepository(opts device.Options, snap repository.Snapshotter, when tape.When, paths ...string) (*Repository, error) {
	base, err := device.NewBase(RepositoryType, opts)
	if err != nil {
		return nil, err
	}
	if when == tape.NA {
		when = tape.BEFORE
	}
	if !when.Before() && !when.After() {
		return nil, tape.ConfigError("%s: unsupported qualifier %s", RepositoryType, when)
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	if snap == nil {
		snap = repository.Git{}
	}
	return &Repository{Base: base, when: when, paths: paths, snap: snap}, nil
}

// Wrap implements Interceptor.
func (r *Repository) Wrap(name string, next device.Func) device.Func {
	id := device.ParseFuncID(name)
	return func(ctx context.Context, call device.Call) (any, error) {
		if !r.Recording() {
			return next(ctx, call)
		}
		if r.when.Before() {
			if err := r.capture(id, tape.BEFORE); err != nil {
				return nil, err
			}
		}
		rval, err := next(ctx, call)
		if err != nil || !r.when.After() {
			return rval, err
		}
		if err := r.capture(id, tape.AFTER); err != nil {
			return nil, err
		}
		return rval, nil
	}
}

func (r *Repository) capture(id device.FuncID, when tape.When) error {
	if r.Mode() == tape.ModeValidate {
		if err := r.restoreExpected(); err != nil {
			return err
		}
	}
	notes, err := repository.Capture(r.snap, r.paths)
	if err != nil {
		return fmt.Errorf("capture repositories for %s: %w", id.Qualname, err)
	}
	notes["function"] = id.Notes()
	_, err = r.Submit(r, notes, when)
	return err
}

func (r *Repository) restoreExpected() error {
	expected := r.Host().PeekExpected()
	if expected == nil || expected.Type() != RepositoryType {
		return tape.ValidationError(r.Host().Tracks().Phase(), expected, nil,
			"no recorded repository state to restore")
	}
	r.Logger().Debug("restoring recorded repository state", "state", repoSummary(expected.Notes))
	return repository.RestoreAll(r.snap, expected.Notes)
}

// Describe implements tape.Device.
func (r *Repository) Describe(t *tape.Tune) string {
	return fmt.Sprintf("MethodRepository %s ... %s",
		t.Notes.Object("function").String("qualname"), repoSummary(t.Notes))
}

func repoSummary(notes ir.IRObject) string {
	snaps, err := repository.Snapshots(notes)
	if err != nil {
		return ir.Brief(notes.Get("repositories"))
	}
	parts := make([]string, len(snaps))
	for i, s := range snaps {
		parts[i] = s.Path + "@" + s.Target()
	}
	return strings.Join(parts, "; ")
}
