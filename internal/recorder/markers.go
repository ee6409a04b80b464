package recorder

import (
	"context"
	"fmt"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// Begin marks the start of the instrumented routine. Its tune is the only
// one in entry: it records the routine's name and arguments, then moves
// the recording on to the recording track.
type Begin struct {
	device.Base
	rec *Recorder
}

// Wrap implements method.Interceptor.
func (b *Begin) Wrap(name string, next device.Func) device.Func {
	id := device.ParseFuncID(name)
	return func(ctx context.Context, call device.Call) (any, error) {
		if !b.Recording() {
			return next(ctx, call)
		}
		tracks := b.rec.Tracks()
		if err := tracks.SetTrack(tape.TrackEntry); err != nil {
			return nil, err
		}
		fn := id.Notes()
		fn["args"], fn["kwargs"] = call.Notes()
		// In validate mode Submit fails on a mismatch, so the recording
		// never advances past a diverged entry.
		if _, err := b.Submit(b, ir.IRObject{"function": fn}, tape.BEFORE); err != nil {
			return nil, err
		}
		if err := tracks.SetTrack(tape.TrackRecording); err != nil {
			return nil, err
		}
		return next(ctx, call)
	}
}

// Recordable implements tape.Device.
func (b *Begin) Recordable(track string) bool { return track == tape.TrackEntry }

// Describe implements tape.Device. Stored tunes carry their local time.
func (b *Begin) Describe(t *tape.Tune) string {
	fn := t.Notes.Object("function")
	args, _ := fn["args"].(ir.IRArray)
	kwargs, _ := fn["kwargs"].(ir.IRObject)
	desc := fmt.Sprintf("RecordingBegin %s(%s)", fn.String("qualname"), device.Signature(args, kwargs))
	return stamped(b.Mode(), desc, t)
}

// stamped appends the local time to descriptions of stored tunes.
func stamped(mode tape.Mode, desc string, t *tape.Tune) string {
	if mode.Recording() {
		return desc
	}
	return desc + " @ [" + t.Timestamp.Localtime + "]"
}

// Playback runs the recorded routine again under the stage's recorder.
// The routine is found in the stage's entrypoint catalog by qualified name
// and called with the recorded arguments.
func (b *Begin) Playback(ctx context.Context, t *tape.Tune, stage *device.Stage) error {
	rec, ok := stage.Host.(*Recorder)
	if !ok || rec == nil {
		return tape.ConfigError("%s: playback needs a bound recorder", BeginType)
	}
	fn := t.Notes.Object("function")
	id := device.FuncIDFromNotes(fn)
	ep, ok := stage.Entrypoints.Lookup(id.Qualname)
	if !ok {
		return tape.ConfigError("no entrypoint registered for %s (known: %v)", id.Qualname, stage.Entrypoints.Names())
	}

	logger := rec.Logger()
	logger.Info("beginning playback", "function", id.Qualname)
	_, err := rec.Wrap(id.Qualname, ep(rec))(ctx, device.CallFromNotes(fn.Get("args"), fn.Get("kwargs")))
	if err != nil {
		return err
	}
	logger.Info("playback complete", "function", id.Qualname)
	return nil
}

// End marks the normal return of the instrumented routine. Its tune is the
// only one in exit: it records the return value, then moves the recording
// on to trailer. A routine that fails records no end.
type End struct {
	device.Base
	rec *Recorder
}

// Wrap implements method.Interceptor.
func (e *End) Wrap(name string, next device.Func) device.Func {
	id := device.ParseFuncID(name)
	return func(ctx context.Context, call device.Call) (any, error) {
		rval, err := next(ctx, call)
		if err != nil || !e.Recording() {
			return rval, err
		}
		tracks := e.rec.Tracks()
		if phase := tracks.Phase(); phase != tape.TrackRecording {
			return nil, tape.LegalityError(phase, EndType, "the routine must end from %s", tape.TrackRecording)
		}
		if err := tracks.SetTrack(tape.TrackExit); err != nil {
			return nil, err
		}
		fn := id.Notes()
		fn["rval"] = ir.Sanitize(rval)
		if _, err := e.Submit(e, ir.IRObject{"function": fn}, tape.AFTER); err != nil {
			return nil, err
		}
		if err := tracks.SetTrack(tape.TrackTrailer); err != nil {
			return nil, err
		}
		return rval, nil
	}
}

// Recordable implements tape.Device.
func (e *End) Recordable(track string) bool { return track == tape.TrackExit }

// Describe implements tape.Device.
func (e *End) Describe(t *tape.Tune) string {
	fn := t.Notes.Object("function")
	desc := fmt.Sprintf("RecordingEnd %s -> [%s]", fn.String("qualname"), ir.Brief(fn.Get("rval")))
	return stamped(e.Mode(), desc, t)
}
