package recorder

import (
	"context"
	"fmt"
	"strings"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/tape"
)

const module = "rekorder.recorder"

// Type tags of the devices a recorder records on its own behalf.
var (
	IdentityType = tape.TypeRef{Module: module, Class: "Recorder"}
	CliStateType = tape.TypeRef{Module: module, Class: "CliState"}
	BeginType    = tape.TypeRef{Module: module, Class: "RecordingBegin"}
	EndType      = tape.TypeRef{Module: module, Class: "RecordingEnd"}
)

// Identity records which recorder made a recording. Replaying it tells the
// player which recorder to bind.
type Identity struct {
	device.Base
}

func newIdentity(r *Recorder) *Identity {
	return &Identity{Base: device.Bind(IdentityType, r)}
}

func (d *Identity) record() error {
	_, err := d.Submit(d, ir.IRObject{"name": ir.IRString(d.Host().Name())}, tape.NA)
	return err
}

// Recordable implements tape.Device.
func (d *Identity) Recordable(track string) bool { return track == tape.TrackHeader }

// Describe implements tape.Device.
func (d *Identity) Describe(t *tape.Tune) string {
	return fmt.Sprintf("Recorder name=[%s] mode=[%s]", t.Notes.String("name"), d.Mode())
}

// Playback implements device.Playable.
func (d *Identity) Playback(_ context.Context, t *tape.Tune, stage *device.Stage) error {
	stage.RecorderName = t.Notes.String("name")
	return nil
}

// CliState records the command line of the recorded run. Replaying it
// hands the arguments to the recorder that validates the replay.
type CliState struct {
	device.Base
}

func newCliState(r *Recorder) *CliState {
	return &CliState{Base: device.Bind(CliStateType, r)}
}

func (d *CliState) record() error {
	rec, _ := d.Host().(*Recorder)
	argv := make(ir.IRArray, 0)
	if rec != nil {
		for _, a := range rec.Args() {
			argv = append(argv, ir.IRString(a))
		}
	}
	_, err := d.Submit(d, ir.IRObject{"argv": argv}, tape.NA)
	return err
}

// Recordable implements tape.Device.
func (d *CliState) Recordable(track string) bool { return track == tape.TrackHeader }

// Describe implements tape.Device.
func (d *CliState) Describe(t *tape.Tune) string {
	args := argv(t.Notes)
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = "[" + a + "]"
	}
	return strings.TrimSpace("CliState " + strings.Join(parts, " "))
}

// Playback implements device.Playable.
func (d *CliState) Playback(_ context.Context, t *tape.Tune, stage *device.Stage) error {
	stage.Args = argv(t.Notes)
	return nil
}

func argv(notes ir.IRObject) []string {
	arr, _ := notes["argv"].(ir.IRArray)
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, ir.Brief(v))
	}
	return out
}
