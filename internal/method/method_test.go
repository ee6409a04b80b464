package method_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/method"
	"github.com/jcejohnson/rekorder/internal/repository"
	"github.com/jcejohnson/rekorder/internal/tape"
	"github.com/jcejohnson/rekorder/internal/testutil"
)

type DivisionError struct{ msg string }

func (e *DivisionError) Error() string { return e.msg }

func divide(_ context.Context, call device.Call) (any, error) {
	a, err := call.Float(0)
	if err != nil {
		return nil, err
	}
	b, err := call.Float(1)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, &DivisionError{msg: "division by zero"}
	}
	return a / b, nil
}

func recordingHost(t *testing.T, mode tape.Mode) *testutil.Host {
	t.Helper()
	host := testutil.NewHost(mode)
	require.NoError(t, host.Manager.SetTrack(tape.TrackRecording))
	return host
}

func describeAll(tunes []*tape.Tune) []string {
	out := make([]string, len(tunes))
	for i, tune := range tunes {
		out[i] = tune.Describe()
	}
	return out
}

func TestParamsRecordsArguments(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	params, err := method.Factory{Host: host}.Params(tape.NA)
	require.NoError(t, err)

	fn := params.Wrap("main.baz", func(context.Context, device.Call) (any, error) { return 5.0, nil })
	rval, err := fn(t.Context(), device.Args(25, 5, 9))
	require.NoError(t, err)
	assert.Equal(t, 5.0, rval)

	require.Len(t, host.Recorded, 1)
	tune := host.Recorded[0]
	assert.Equal(t, tape.BEFORE, tune.When)
	fnNotes := tune.Notes.Object("function")
	assert.Equal(t, "baz", fnNotes.String("name"))
	assert.Equal(t, "main", fnNotes.String("module"))
	assert.Equal(t, ir.IRArray{ir.IRInt(25), ir.IRInt(5), ir.IRInt(9)}, fnNotes["args"])
	assert.Equal(t, "[BEFORE] MethodParameters main.baz(25, 5, 9)", tune.Describe())
}

func TestChainNestsLikeCalls(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	f := method.Factory{Host: host}
	outer, err := f.Params(tape.AROUND)
	require.NoError(t, err)
	inner, err := f.Return(tape.AROUND, false)
	require.NoError(t, err)

	var order []string
	fn := method.Chain("main.div", func(ctx context.Context, call device.Call) (any, error) {
		order = append(order, fmt.Sprintf("call after %d tunes", len(host.Recorded)))
		return divide(ctx, call)
	}, outer, inner)

	_, err = fn(t.Context(), device.Args(25, 5))
	require.NoError(t, err)

	assert.Equal(t, []string{"call after 2 tunes"}, order)
	require.Len(t, host.Recorded, 4)
	got := make([]string, len(host.Recorded))
	for i, tune := range host.Recorded {
		got[i] = tune.Type().Class + "/" + tune.When.String()
	}
	assert.Equal(t, []string{
		"Parameters/BEFORE",
		"Return/BEFORE",
		"Return/AFTER",
		"Parameters/AFTER",
	}, got)
}

func TestReturnRecordsValue(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	ret, err := method.Factory{Host: host}.Return(tape.NA, false)
	require.NoError(t, err)

	rval, err := ret.Wrap("main.div", divide)(t.Context(), device.Args(25, 5))
	require.NoError(t, err)
	assert.Equal(t, 5.0, rval)

	require.Len(t, host.Recorded, 1)
	assert.Equal(t, tape.AFTER, host.Recorded[0].When)
	assert.Equal(t, ir.IRFloat(5), host.Recorded[0].Notes.Object("function")["rval"])
	assert.Equal(t, "[AFTER] MethodReturn main.div [mock:false] -> [5.0]", host.Recorded[0].Describe())
}

func TestReturnSkipsRecordingOnError(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	ret, err := method.Factory{Host: host}.Return(tape.NA, false)
	require.NoError(t, err)

	_, err = ret.Wrap("main.div", divide)(t.Context(), device.Args(1, 0))
	assert.Error(t, err)
	assert.Empty(t, host.Recorded)
}

func TestMockRequiresAfterCapture(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	_, err := method.Factory{Host: host}.Return(tape.BEFORE, true)
	assert.True(t, tape.IsConfigError(err))
}

func TestMockRecordIsolatesInnerCalls(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	f := method.Factory{Host: host}
	mock, err := f.Mock()
	require.NoError(t, err)
	params, err := f.Params(tape.NA)
	require.NoError(t, err)

	fn := mock.Wrap("main.answer", params.Wrap("main.helper", func(context.Context, device.Call) (any, error) {
		return 42, nil
	}))
	rval, err := fn(t.Context(), device.Call{})
	require.NoError(t, err)
	assert.Equal(t, 42, rval)

	recording := host.Manager.Track(tape.TrackRecording)
	require.Len(t, recording.Tunes, 1, "only the mock's own tune lands in the parent track")
	assert.Equal(t, method.ReturnType, recording.Tunes[0].Type())
	assert.Equal(t, "[AFTER] MethodReturn main.answer [mock:true] -> [42]", recording.Tunes[0].Describe())

	require.Len(t, recording.Subtracks, 1)
	assert.Equal(t, method.MockTrack, recording.Subtracks[0].Title)
	require.Len(t, recording.Subtracks[0].Tunes, 1)
	assert.Equal(t, method.ParamsType, recording.Subtracks[0].Tunes[0].Type())
	assert.False(t, host.Manager.InSubtrack())
}

func TestMockPanicConcludesSubtrack(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	f := method.Factory{Host: host}
	mock, err := f.Mock()
	require.NoError(t, err)
	exc, err := f.Exception()
	require.NoError(t, err)

	fn := method.Chain("main.answer", func(context.Context, device.Call) (any, error) {
		panic("oracle unavailable")
	}, exc, mock)
	assert.PanicsWithValue(t, "oracle unavailable", func() { _, _ = fn(t.Context(), device.Call{}) })

	assert.False(t, host.Manager.InSubtrack())
	recording := host.Manager.Track(tape.TrackRecording)
	require.Len(t, recording.Tunes, 1)
	assert.Equal(t, tape.EXCEPTION, recording.Tunes[0].When)
	require.NoError(t, host.Manager.SetTrack(tape.TrackExit))
}

func TestMockValidateSubstitutesRecordedValue(t *testing.T) {
	host := recordingHost(t, tape.ModeValidate)
	mock, err := method.Factory{Host: host}.Mock()
	require.NoError(t, err)

	expected := tape.NewTrackManager()
	require.NoError(t, expected.SetTrack(tape.TrackRecording))
	expected.Append(tape.NewTune(mock, ir.IRObject{
		"function": ir.IRObject{
			"name": ir.IRString("answer"), "qualname": ir.IRString("main.answer"),
			"module": ir.IRString("main"), "mock": ir.IRBool(true), "rval": ir.IRInt(42),
		},
	}, tape.AFTER, tape.Timestamp{}))
	host.Expected = expected

	called := false
	rval, err := mock.Wrap("main.answer", func(context.Context, device.Call) (any, error) {
		called = true
		return 7, nil
	})(t.Context(), device.Call{})
	require.NoError(t, err)

	assert.False(t, called, "a mocked call is not executed during validation")
	assert.Equal(t, int64(42), rval)
	require.Len(t, host.Recorded, 1)
	assert.True(t, tape.Matches(expected.Track(tape.TrackRecording).Tunes[0], host.Recorded[0]))
}

func TestMockValidateWithoutExpectation(t *testing.T) {
	host := recordingHost(t, tape.ModeValidate)
	host.Expected = tape.NewTrackManager()
	mock, err := method.Factory{Host: host}.Mock()
	require.NoError(t, err)

	_, err = mock.Wrap("main.answer", divide)(t.Context(), device.Call{})
	assert.True(t, tape.IsValidationError(err))
}

func TestExceptionRecordsReturnedError(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	exc, err := method.Factory{Host: host}.Exception()
	require.NoError(t, err)

	_, err = exc.Wrap("main.div", divide)(t.Context(), device.Args(1, 0))
	var divErr *DivisionError
	require.ErrorAs(t, err, &divErr)

	require.Len(t, host.Recorded, 1)
	tune := host.Recorded[0]
	assert.Equal(t, tape.EXCEPTION, tune.When)
	assert.Equal(t, "DivisionError", tune.Notes.String("class"))
	assert.Equal(t, "division by zero", tune.Notes.String("message"))
	assert.Contains(t, tune.Describe(), "[EXCEPTION] MethodException main.div [DivisionError] [division by zero]")

	_, hasTraceback := tape.Essence(tune)["traceback"]
	assert.False(t, hasTraceback)
}

func TestExceptionRepanicsOriginalValue(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	exc, err := method.Factory{Host: host}.Exception()
	require.NoError(t, err)

	fn := exc.Wrap("main.boom", func(context.Context, device.Call) (any, error) {
		panic("boom")
	})
	assert.PanicsWithValue(t, "boom", func() { _, _ = fn(t.Context(), device.Call{}) })

	require.Len(t, host.Recorded, 1)
	assert.Equal(t, "string", host.Recorded[0].Notes.String("class"))
	assert.Equal(t, "boom", host.Recorded[0].Notes.String("message"))
}

func TestExceptionRecordingFailureIsFatal(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	exc, err := method.Factory{Host: host}.Exception()
	require.NoError(t, err)
	host.Fail = tape.ConfigError("disk full")

	_, err = exc.Wrap("main.div", divide)(t.Context(), device.Args(1, 0))
	assert.True(t, tape.IsConfigError(err))
}

func TestExceptionPanicThatCannotBeRecordedIsReported(t *testing.T) {
	host := recordingHost(t, tape.ModeValidate)
	exc, err := method.Factory{Host: host}.Exception()
	require.NoError(t, err)
	host.Fail = tape.ValidationError(tape.TrackRecording, nil, nil, "tune does not match the recording")

	fn := exc.Wrap("main.boom", func(context.Context, device.Call) (any, error) {
		panic("boom")
	})

	var raised any
	func() {
		defer func() { raised = recover() }()
		_, _ = fn(t.Context(), device.Call{})
	}()

	perr, ok := raised.(*method.PanicRecordingError)
	require.True(t, ok, "got %T", raised)
	assert.Equal(t, "boom", perr.Value)
	assert.True(t, tape.IsValidationError(perr))
}

func TestEverything(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	all, err := method.Factory{Host: host}.Everything()
	require.NoError(t, err)

	fn := all.Wrap("main.div", divide)
	_, err = fn(t.Context(), device.Args(25, 5))
	require.NoError(t, err)
	_, err = fn(t.Context(), device.Args(1, 0))
	require.Error(t, err)

	assert.Equal(t, []string{
		"[BEFORE] MethodParameters main.div(25, 5)",
		"[AFTER] MethodReturn main.div [mock:false] -> [5.0]",
		"[BEFORE] MethodParameters main.div(1, 0)",
	}, describeAll(host.Recorded[:3]))
	require.Len(t, host.Recorded, 4)
	assert.Equal(t, method.ExceptionType, host.Recorded[3].Type())
}

func TestFactoryChecksDecoders(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	decoders := tape.NewRegistry()
	require.NoError(t, method.Register(decoders, repository.NewMemory()))

	all, err := method.Factory{Host: host, Decoders: decoders}.Everything()
	require.NoError(t, err)
	assert.Len(t, all.Parts(), 3)

	_, err = method.Factory{Host: host, Decoders: tape.NewRegistry()}.Params(tape.NA)
	assert.True(t, tape.IsConfigError(err))
	assert.Contains(t, err.Error(), "no decoder registered for "+method.ParamsType.String())
}

func TestWrappersPassThroughOutsideRecording(t *testing.T) {
	params, err := method.NewParams(device.Options{Mode: tape.ModeDescribe}, tape.NA)
	require.NoError(t, err)

	rval, err := params.Wrap("main.div", divide)(t.Context(), device.Args(9, 3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, rval)
}

func TestWrapperOutsideRecordingTrackIsIllegal(t *testing.T) {
	host := testutil.NewHost(tape.ModeRecord)
	params, err := method.Factory{Host: host}.Params(tape.NA)
	require.NoError(t, err)

	_, err = params.Wrap("main.div", divide)(t.Context(), device.Args(1, 1))
	assert.True(t, tape.IsLegalityError(err))
	assert.Empty(t, host.Manager.Track(tape.TrackHeader).Tunes)
}

func repoFixture() (*repository.Memory, repository.Snapshot) {
	snap := repository.Snapshot{
		Path:       "/work/app",
		HeadName:   "main",
		BranchName: "main",
		Commit:     repository.Commit{SHA: "1111111111111111111111111111111111111111"},
		Branches:   []string{"main"},
	}
	mem := repository.NewMemory()
	mem.Set(snap)
	return mem, snap
}

func TestRepositoryRecordsState(t *testing.T) {
	host := recordingHost(t, tape.ModeRecord)
	mem, snap := repoFixture()
	repo, err := method.Factory{Host: host, Snap: mem}.Repository(tape.NA, snap.Path)
	require.NoError(t, err)

	_, err = repo.Wrap("main.build", divide)(t.Context(), device.Args(4, 2))
	require.NoError(t, err)

	require.Len(t, host.Recorded, 1)
	assert.Equal(t, tape.BEFORE, host.Recorded[0].When)
	assert.Equal(t, "[BEFORE] MethodRepository main.build ... /work/app@main", host.Recorded[0].Describe())
}

func TestRepositoryValidateRestoresExpectedState(t *testing.T) {
	mem, snap := repoFixture()
	notes, err := repository.Capture(mem, []string{snap.Path})
	require.NoError(t, err)
	notes["function"] = device.ParseFuncID("main.build").Notes()

	moved := snap
	moved.BranchName, moved.HeadName = "feature", "feature"
	moved.Commit.SHA = "2222222222222222222222222222222222222222"
	moved.Branches = []string{"feature"}
	mem.Set(moved)

	host := recordingHost(t, tape.ModeValidate)
	repo, err := method.Factory{Host: host, Snap: mem}.Repository(tape.NA, snap.Path)
	require.NoError(t, err)

	expected := tape.NewTrackManager()
	require.NoError(t, expected.SetTrack(tape.TrackRecording))
	expected.Append(tape.NewTune(repo, notes, tape.BEFORE, tape.Timestamp{}))
	host.Expected = expected

	var seen string
	_, err = repo.Wrap("main.build", func(context.Context, device.Call) (any, error) {
		now, err := mem.Snapshot(snap.Path)
		seen = now.Commit.SHA
		return nil, err
	})(t.Context(), device.Call{})
	require.NoError(t, err)

	assert.Equal(t, snap.Commit.SHA, seen, "the call runs against the recorded state")
	assert.Equal(t, []string{"/work/app@main"}, mem.Restores)
	require.Len(t, host.Recorded, 1)
	assert.True(t, tape.Matches(expected.Track(tape.TrackRecording).Tunes[0], host.Recorded[0]))
}

func TestRegisterDecoders(t *testing.T) {
	reg := tape.NewRegistry()
	require.NoError(t, method.Register(reg, repository.NewMemory()))

	d, err := reg.Build(tape.Seed{
		Ref:  method.ReturnType,
		Mode: tape.ModeDescribe,
		When: tape.AFTER,
		Notes: ir.IRObject{"function": ir.IRObject{
			"qualname": ir.IRString("main.baz"), "mock": ir.IRBool(true), "rval": ir.IRFloat(5),
		}},
	})
	require.NoError(t, err)
	require.IsType(t, &method.Return{}, d)

	tune := &tape.Tune{Device: d, When: tape.AFTER, Notes: ir.IRObject{"function": ir.IRObject{
		"qualname": ir.IRString("main.baz"), "mock": ir.IRBool(true), "rval": ir.IRFloat(5),
	}}}
	assert.Equal(t, "[AFTER] MethodReturn main.baz [mock:true] -> [5.0]", tune.Describe())

	assert.True(t, tape.IsConfigError(method.Register(reg, nil)), "registering twice is rejected")
}
