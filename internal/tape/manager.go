package tape

import (
	"slices"

	"github.com/jcejohnson/rekorder/internal/ir"
)

// TrackManager is the phase state machine: the five canonical tracks, a
// forward-only cursor, and a stack of active sub-tracks.
type TrackManager struct {
	tracks []*Track
	cursor int
	stack  []*Track
}

// NewTrackManager creates a manager with empty canonical tracks and the
// cursor at header.
func NewTrackManager() *TrackManager {
	m := &TrackManager{}
	for i, title := range Titles {
		m.tracks = append(m.tracks, NewTrack(i, title))
	}
	return m
}

// Tracks returns the top-level tracks in order.
func (m *TrackManager) Tracks() []*Track {
	return m.tracks
}

// Track returns the top-level track with the given title, or nil.
func (m *TrackManager) Track(title string) *Track {
	for _, t := range m.tracks {
		if t.Title == title {
			return t
		}
	}
	return nil
}

// Current returns the track tunes are appended to: the innermost active
// sub-track, else the track under the cursor.
func (m *TrackManager) Current() *Track {
	if n := len(m.stack); n > 0 {
		return m.stack[n-1]
	}
	return m.tracks[m.cursor]
}

// Phase returns the title of the top-level track under the cursor.
func (m *TrackManager) Phase() string {
	return m.tracks[m.cursor].Title
}

// InSubtrack reports whether a sub-track is active.
func (m *TrackManager) InSubtrack() bool {
	return len(m.stack) > 0
}

// SetTrack moves the cursor forward to the named track, one step at a
// time. Setting the current track is a no-op. Moving backward, naming an
// unknown track, or moving while a sub-track is active is a legality error.
func (m *TrackManager) SetTrack(name string) error {
	if m.InSubtrack() {
		return LegalityError(m.Current().Title, TypeRef{},
			"cannot move to track %q while sub-track %q is active", name, m.Current().Title)
	}
	target := slices.IndexFunc(m.tracks, func(t *Track) bool { return t.Title == name })
	if target < 0 {
		return LegalityError(m.Phase(), TypeRef{}, "unknown track %q", name)
	}
	if target < m.cursor {
		return LegalityError(m.Phase(), TypeRef{}, "cannot move backward from %q to %q", m.Phase(), name)
	}
	for m.tracks[m.cursor].Title != name {
		m.cursor++
	}
	return nil
}

// BeginSubtrack pushes a new sub-track beneath the current track and
// makes it current.
func (m *TrackManager) BeginSubtrack(name string) *Track {
	parent := m.Current()
	sub := &Track{Index: SubtrackIndex, Title: name, parent: parent}
	parent.Subtracks = append(parent.Subtracks, sub)
	m.stack = append(m.stack, sub)
	return sub
}

// ConcludeSubtrack pops the innermost sub-track. It is a legality error
// when no sub-track is active or the innermost one has a different name.
func (m *TrackManager) ConcludeSubtrack(name string) error {
	n := len(m.stack)
	if n == 0 {
		return LegalityError(m.Phase(), TypeRef{}, "no active sub-track to conclude (wanted %q)", name)
	}
	if top := m.stack[n-1]; top.Title != name {
		return LegalityError(top.Title, TypeRef{}, "sub-track %q is active, cannot conclude %q", top.Title, name)
	}
	m.stack = m.stack[:n-1]
	return nil
}

// Append adds tune to the current track. Legality is the caller's job.
func (m *TrackManager) Append(tune *Tune) {
	m.Current().Append(tune)
}

// Len returns the number of tunes in the top-level tracks.
func (m *TrackManager) Len() int {
	n := 0
	for _, t := range m.tracks {
		n += len(t.Tunes)
	}
	return n
}

// ResetReads rewinds the read cursor of every track.
func (m *TrackManager) ResetReads() {
	for _, t := range m.tracks {
		t.Reset()
	}
}

// MarshalJSON writes the tracks as an ordered list.
func (m *TrackManager) MarshalJSON() ([]byte, error) {
	return ir.Encode(m.tracks)
}
