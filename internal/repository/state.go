package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// StateType identifies repository snapshot tunes.
var StateType = tape.TypeRef{Module: "rekorder.repository", Class: "State"}

// ManagerType identifies the manager. It is never written to disk; a
// manager records as its State.
var ManagerType = tape.TypeRef{Module: "rekorder.repository", Class: "Manager"}

// State records snapshots of a set of repositories. Submission is guarded
// so the snapshot that trailer restoration depends on is taken only once.
type State struct {
	device.Base
	snap  Snapshotter
	once  device.OneShot
	notes ir.IRObject
}

// NewState creates a State bound per opts.
func NewState(opts device.Options, snap Snapshotter) (*State, error) {
	base, err := device.NewBase(StateType, opts)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		snap = Git{}
	}
	return &State{Base: base, snap: snap, once: device.NewOneShot(StateType)}, nil
}

// Recordable allows header (initial state), recording (state changes
// mid-run) and trailer (restoration).
func (s *State) Recordable(track string) bool {
	switch track {
	case tape.TrackHeader, tape.TrackRecording, tape.TrackTrailer:
		return true
	}
	return false
}

// Record snapshots paths and submits them. It may run once; reset permits
// one further submission and reuses the cached snapshot when paths is empty.
func (s *State) Record(reset bool, paths ...string) error {
	return s.submit(s, reset, paths)
}

func (s *State) submit(self tape.Device, reset bool, paths []string) error {
	if err := s.once.Use(reset); err != nil {
		return err
	}
	if len(paths) > 0 || s.notes == nil {
		notes, err := Capture(s.snap, paths)
		if err != nil {
			return err
		}
		s.notes = notes
	}
	_, err := s.Submit(self, s.notes, tape.NA)
	return err
}

// Notes returns the last captured snapshot notes.
func (s *State) Notes() ir.IRObject { return s.notes }

// Describe implements tape.Device.
func (s *State) Describe(t *tape.Tune) string {
	return "RepositoryState " + describeRepos(t.Notes)
}

func describeRepos(notes ir.IRObject) string {
	snaps, err := Snapshots(notes)
	if err != nil {
		return ir.Brief(notes)
	}
	if len(snaps) == 0 {
		return "(none)"
	}
	parts := make([]string, len(snaps))
	for i, snap := range snaps {
		sha := snap.Commit.SHA
		if len(sha) > 8 {
			sha = sha[:8]
		}
		parts[i] = fmt.Sprintf("%s@%s (%s)", snap.Path, snap.Target(), sha)
	}
	return strings.Join(parts, "; ")
}

// Playback restores every repository in the tune to its recorded target.
func (s *State) Playback(_ context.Context, t *tape.Tune, stage *device.Stage) error {
	if stage != nil && stage.Logger != nil {
		stage.Logger.Info("restoring repositories", "state", describeRepos(t.Notes))
	}
	return RestoreAll(s.snap, t.Notes)
}

// Decoder returns the constructor for State tunes restored through snap.
func Decoder(snap Snapshotter) tape.Constructor {
	return func(seed tape.Seed) (tape.Device, error) {
		if snap == nil {
			snap = Git{}
		}
		return &State{
			Base:  device.FromSeed(seed),
			snap:  snap,
			once:  device.NewOneShot(StateType),
			notes: seed.Notes,
		}, nil
	}
}

// Manager records repository state at most once per run and records it
// again at the end so playback can restore it.
type Manager struct {
	state *State
}

// NewManager creates a manager bound per opts.
func NewManager(opts device.Options, snap Snapshotter) (*Manager, error) {
	state, err := NewState(opts, snap)
	if err != nil {
		return nil, err
	}
	return &Manager{state: state}, nil
}

// Record snapshots paths. A second call is a reuse error.
func (m *Manager) Record(paths ...string) error {
	if len(paths) == 0 {
		return tape.ConfigError("%s: no repositories to record", ManagerType)
	}
	return m.state.submit(m, false, paths)
}

// RestoreOnPlayback records the snapshot taken by Record again, normally
// into trailer, so replaying the recording puts the repositories back.
func (m *Manager) RestoreOnPlayback() error {
	if m.state.notes == nil {
		return tape.ConfigError("%s: nothing recorded to restore", ManagerType)
	}
	return m.state.submit(m, true, nil)
}

// Standin implements tape.Alias.
func (m *Manager) Standin() tape.Device { return m.state }

func (m *Manager) Type() tape.TypeRef           { return ManagerType }
func (m *Manager) Mode() tape.Mode              { return m.state.Mode() }
func (m *Manager) Recordable(track string) bool { return m.state.Recordable(track) }
func (m *Manager) Describe(t *tape.Tune) string { return m.state.Describe(t) }
