package tape

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcejohnson/rekorder/internal/ir"
)

var fakeRef = TypeRef{Module: "test", Class: "Fake"}

func fakeRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(fakeRef, func(s Seed) (Device, error) {
		return &fake{ref: s.Ref, tracks: Titles}, nil
	}))
	return reg
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	reg := fakeRegistry(t)

	err := reg.Register(fakeRef, func(Seed) (Device, error) { return nil, nil })

	assert.True(t, IsConfigError(err))
}

func TestRegistryUnknownTypeIsOpaque(t *testing.T) {
	reg := NewRegistry()

	d, err := reg.Build(Seed{Ref: TypeRef{Module: "elsewhere", Class: "Gadget"}, Mode: ModeDescribe})
	require.NoError(t, err)

	assert.IsType(t, &Opaque{}, d)
	assert.False(t, d.Recordable(TrackRecording))
}

func TestRegistryConstructorError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.Register(fakeRef, func(Seed) (Device, error) { return nil, boom }))

	_, err := reg.Build(Seed{Ref: fakeRef})
	assert.ErrorIs(t, err, boom)
}

type compositeFake struct {
	fake
	parts []Device
}

func (c *compositeFake) Parts() []Device { return c.parts }

func TestRegistryCheck(t *testing.T) {
	reg := fakeRegistry(t)
	known := &fake{ref: fakeRef}
	stranger := &fake{ref: TypeRef{Module: "elsewhere", Class: "Gadget"}}

	assert.NoError(t, reg.Check(known))
	assert.NoError(t, reg.Check(&aliasFake{standin: known}), "aliases are checked by their standin")

	err := reg.Check(stranger)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "no decoder registered for elsewhere.Gadget (known: [test.Fake])")

	whole := &compositeFake{fake: fake{ref: TypeRef{Module: "test", Class: "Whole"}}, parts: []Device{known}}
	assert.NoError(t, reg.Check(whole), "a composite is checked through its parts")
	whole.parts = append(whole.parts, stranger)
	assert.True(t, IsConfigError(reg.Check(whole)))
}

func TestDecodeRoundTrip(t *testing.T) {
	reg := fakeRegistry(t)
	d := &fake{ref: fakeRef, tracks: Titles}

	m := NewTrackManager()
	m.Append(NewTune(d, ir.IRObject{"name": ir.IRString("demo")}, NA, NewTimestamp(fixedTime)))
	require.NoError(t, m.SetTrack(TrackRecording))
	m.Append(NewTune(d, ir.IRObject{"args": ir.IRArray{ir.IRInt(25), ir.IRInt(5), ir.IRInt(9)}}, BEFORE, NewTimestamp(fixedTime)))
	m.BeginSubtrack("mock")
	m.Append(NewTune(d, ir.IRObject{"inner": ir.IRBool(true)}, NA, NewTimestamp(fixedTime)))
	require.NoError(t, m.ConcludeSubtrack("mock"))
	m.Append(NewTune(d, ir.IRObject{"rval": ir.IRFloat(5)}, AFTER, NewTimestamp(fixedTime)))

	data, err := json.MarshalIndent(m, "", "  ")
	require.NoError(t, err)

	back, err := reg.Decode(data, ModePlayback)
	require.NoError(t, err)

	assert.Equal(t, TrackHeader, back.Phase())
	rec := back.Track(TrackRecording)
	require.Len(t, rec.Tunes, 2)
	assert.Equal(t, BEFORE, rec.Tunes[0].When)
	assert.Equal(t, ir.IRFloat(5), rec.Tunes[1].Notes["rval"])
	assert.Equal(t, fakeRef, rec.Tunes[1].Type())

	require.Len(t, rec.Subtracks, 1)
	assert.Equal(t, "mock", rec.Subtracks[0].Title)
	assert.Equal(t, TrackRecording, rec.Subtracks[0].Phase())
	assert.Len(t, rec.Subtracks[0].Tunes, 1)

	again, err := json.MarshalIndent(back, "", "  ")
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestDecodeRejectsBadShape(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"too few tracks", `[{"index":0,"title":"header","tunes":[]}]`},
		{"wrong order", `[
			{"index":0,"title":"entry","tunes":[]},
			{"index":1,"title":"header","tunes":[]},
			{"index":2,"title":"recording","tunes":[]},
			{"index":3,"title":"exit","tunes":[]},
			{"index":4,"title":"trailer","tunes":[]}]`},
		{"missing device", `[
			{"index":0,"title":"header","tunes":[{"notes":{}}]},
			{"index":1,"title":"entry","tunes":[]},
			{"index":2,"title":"recording","tunes":[]},
			{"index":3,"title":"exit","tunes":[]},
			{"index":4,"title":"trailer","tunes":[]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Decode([]byte(tt.doc), ModeDescribe)
			assert.Error(t, err)
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := LegalityError(TrackEntry, fakeRef, "not recordable")
	assert.Equal(t, "LEGALITY: not recordable (device=test.Fake, track=entry)", err.Error())

	ts := NewTimestamp(fixedTime)
	v := ValidationError(TrackRecording,
		NewTune(&fake{ref: fakeRef}, ir.IRObject{"rval": ir.IRInt(5)}, AFTER, ts),
		NewTune(&fake{ref: fakeRef}, ir.IRObject{"rval": ir.IRInt(6)}, AFTER, ts),
		"tune mismatch")
	assert.Contains(t, v.Error(), "expected: test.Fake when=AFTER notes={\"rval\": 5}")
	assert.Contains(t, v.Error(), "actual:   test.Fake when=AFTER notes={\"rval\": 6}")

	wrapped := errors.Join(errors.New("context"), ReuseError(fakeRef))
	assert.True(t, IsReuseError(wrapped))
	assert.False(t, IsConfigError(wrapped))
}
