package tape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackManagerStartsAtHeader(t *testing.T) {
	m := NewTrackManager()

	assert.Equal(t, TrackHeader, m.Phase())
	require.Len(t, m.Tracks(), 5)
	for i, title := range Titles {
		assert.Equal(t, i, m.Tracks()[i].Index)
		assert.Equal(t, title, m.Tracks()[i].Title)
	}
}

func TestSetTrackVisitsEveryTrackInOrder(t *testing.T) {
	m := NewTrackManager()

	require.NoError(t, m.SetTrack(TrackRecording))
	assert.Equal(t, TrackRecording, m.Phase())

	require.NoError(t, m.SetTrack(TrackRecording), "setting the current track is a no-op")
	require.NoError(t, m.SetTrack(TrackTrailer))
	assert.Equal(t, TrackTrailer, m.Phase())
}

func TestSetTrackBackwardFails(t *testing.T) {
	m := NewTrackManager()
	require.NoError(t, m.SetTrack(TrackExit))

	err := m.SetTrack(TrackEntry)

	require.Error(t, err)
	assert.True(t, IsLegalityError(err))
	assert.Equal(t, TrackExit, m.Phase(), "failed transition must not move the cursor")
}

func TestSetTrackUnknownFails(t *testing.T) {
	m := NewTrackManager()

	err := m.SetTrack("intermission")

	assert.True(t, IsLegalityError(err))
	assert.Equal(t, TrackHeader, m.Phase())
}

func TestSubtrackBalance(t *testing.T) {
	m := NewTrackManager()
	require.NoError(t, m.SetTrack(TrackRecording))

	sub := m.BeginSubtrack("mock")
	assert.Same(t, sub, m.Current())
	assert.Equal(t, SubtrackIndex, sub.Index)
	assert.Equal(t, TrackRecording, sub.Phase())

	err := m.SetTrack(TrackExit)
	assert.True(t, IsLegalityError(err), "unmatched push blocks the next transition")

	require.NoError(t, m.ConcludeSubtrack("mock"))
	assert.Equal(t, TrackRecording, m.Current().Title)
	require.NoError(t, m.SetTrack(TrackExit))
}

func TestConcludeSubtrackErrors(t *testing.T) {
	m := NewTrackManager()

	assert.True(t, IsLegalityError(m.ConcludeSubtrack("mock")))

	m.BeginSubtrack("mock")
	assert.True(t, IsLegalityError(m.ConcludeSubtrack("other")))
	assert.True(t, m.InSubtrack())
}

func TestNestedSubtracks(t *testing.T) {
	m := NewTrackManager()
	outer := m.BeginSubtrack("mock")
	inner := m.BeginSubtrack("mock")

	assert.Same(t, outer, inner.Parent())
	assert.Equal(t, TrackHeader, inner.Phase())

	require.NoError(t, m.ConcludeSubtrack("mock"))
	assert.Same(t, outer, m.Current())
	require.NoError(t, m.ConcludeSubtrack("mock"))
	assert.False(t, m.InSubtrack())
}

func TestTrackReadCursor(t *testing.T) {
	track := NewTrack(2, TrackRecording)
	a := &Tune{Notes: nil}
	b := &Tune{Notes: nil}
	track.Append(a)
	track.Append(b)

	assert.Same(t, a, track.Peek())
	assert.Same(t, a, track.Next())
	assert.Equal(t, []*Tune{b}, track.Remaining())
	assert.Same(t, b, track.Next())
	assert.Nil(t, track.Next())
	assert.Empty(t, track.Remaining())

	track.Reset()
	assert.Same(t, a, track.Peek())
}

func TestTrackRetractOnlyRemovesLastTune(t *testing.T) {
	track := NewTrack(2, TrackRecording)
	a := &Tune{}
	b := &Tune{}
	track.Append(a)
	track.Append(b)

	assert.False(t, track.Retract(a))
	assert.True(t, track.Retract(b))
	assert.Equal(t, []*Tune{a}, track.Tunes)
	assert.False(t, track.Retract(b))
}
