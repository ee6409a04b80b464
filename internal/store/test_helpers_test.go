package store

import (
	"path/filepath"
	"testing"

	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/recorder"
	"github.com/jcejohnson/rekorder/internal/tape"
	"github.com/jcejohnson/rekorder/internal/testutil"
)

// createTestStore creates a new store with sequential ids for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path, WithIDs(testutil.NewSequentialIDs().Next))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var (
	cassetteType = tape.TypeRef{Module: "rekorder.cassette", Class: "Cassette"}
	paramsType   = tape.TypeRef{Module: "rekorder.method", Class: "Parameters"}
	returnType   = tape.TypeRef{Module: "rekorder.method", Class: "Return"}
)

// createTestTracks builds a completed recording of demo.run whose routine
// returns rval, with one mocked call in a sub-track.
func createTestTracks(t *testing.T, rval float64) *tape.TrackManager {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	m := tape.NewTrackManager()
	add := func(ref tape.TypeRef, when tape.When, notes ir.IRObject) {
		m.Append(tape.NewTune(tape.NewOpaque(ref, tape.ModeDescribe), notes, when, tape.NewTimestamp(clock.Now())))
	}
	fn := func(extra ir.IRObject) ir.IRObject {
		out := ir.IRObject{"qualname": ir.IRString("demo.run")}
		for k, v := range extra {
			out[k] = v
		}
		return ir.IRObject{"function": out}
	}
	step := func(track string) {
		if err := m.SetTrack(track); err != nil {
			t.Fatalf("SetTrack(%s): %v", track, err)
		}
	}

	add(cassetteType, tape.NA, ir.IRObject{"input": ir.IRString(""), "output": ir.IRString("demo.json")})
	add(recorder.IdentityType, tape.NA, ir.IRObject{"name": ir.IRString("demo")})

	step(tape.TrackEntry)
	add(recorder.BeginType, tape.BEFORE, fn(ir.IRObject{"args": ir.IRArray{ir.IRInt(25), ir.IRInt(5)}}))

	step(tape.TrackRecording)
	add(paramsType, tape.BEFORE, fn(nil))
	m.BeginSubtrack("mock")
	add(paramsType, tape.BEFORE, ir.IRObject{"function": ir.IRObject{"qualname": ir.IRString("demo.oracle")}})
	if err := m.ConcludeSubtrack("mock"); err != nil {
		t.Fatalf("ConcludeSubtrack: %v", err)
	}
	add(returnType, tape.AFTER, fn(ir.IRObject{"rval": ir.IRFloat(rval)}))

	step(tape.TrackExit)
	add(recorder.EndType, tape.AFTER, fn(ir.IRObject{"rval": ir.IRFloat(rval)}))
	step(tape.TrackTrailer)
	return m
}
