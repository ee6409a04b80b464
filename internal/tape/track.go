package tape

import (
	"github.com/jcejohnson/rekorder/internal/ir"
)

// Canonical track titles, in the order the cursor visits them.
const (
	TrackHeader    = "header"
	TrackEntry     = "entry"
	TrackRecording = "recording"
	TrackExit      = "exit"
	TrackTrailer   = "trailer"
)

// Titles lists the canonical tracks in order.
var Titles = []string{TrackHeader, TrackEntry, TrackRecording, TrackExit, TrackTrailer}

// SubtrackIndex is the index given to every sub-track.
const SubtrackIndex = -1

// Track is an ordered, named sequence of tunes.
//
// A track also carries a read cursor used when it serves as an
// expectation: Next hands out tunes in order without touching Tunes.
type Track struct {
	Index     int
	Title     string
	Tunes     []*Tune
	Subtracks []*Track

	parent *Track
	read   int
}

// NewTrack creates an empty top-level track.
func NewTrack(index int, title string) *Track {
	return &Track{Index: index, Title: title}
}

// Parent returns the enclosing track of a sub-track, or nil.
func (t *Track) Parent() *Track { return t.parent }

// Phase returns the title of the top-level track this track belongs to.
func (t *Track) Phase() string {
	root := t
	for root.parent != nil {
		root = root.parent
	}
	return root.Title
}

// Append adds tune to the end of the track.
func (t *Track) Append(tune *Tune) {
	t.Tunes = append(t.Tunes, tune)
}

// Retract removes tune when it is the last one appended. It reports
// whether anything was removed.
func (t *Track) Retract(tune *Tune) bool {
	n := len(t.Tunes)
	if n == 0 || t.Tunes[n-1] != tune {
		return false
	}
	t.Tunes[n-1] = nil
	t.Tunes = t.Tunes[:n-1]
	return true
}

// Next returns the next unread tune, or nil when the track is exhausted.
func (t *Track) Next() *Tune {
	if t.read >= len(t.Tunes) {
		return nil
	}
	tune := t.Tunes[t.read]
	t.read++
	return tune
}

// Peek returns the next unread tune without consuming it.
func (t *Track) Peek() *Tune {
	if t.read >= len(t.Tunes) {
		return nil
	}
	return t.Tunes[t.read]
}

// Remaining returns the unread tunes.
func (t *Track) Remaining() []*Tune {
	return t.Tunes[min(t.read, len(t.Tunes)):]
}

// Reset rewinds the read cursor.
func (t *Track) Reset() {
	t.read = 0
}

type trackJSON struct {
	Index     int      `json:"index"`
	Subtracks []*Track `json:"subtracks,omitempty"`
	Title     string   `json:"title"`
	Tunes     []*Tune  `json:"tunes"`
}

// MarshalJSON implements json.Marshaler.
func (t *Track) MarshalJSON() ([]byte, error) {
	tunes := t.Tunes
	if tunes == nil {
		tunes = []*Tune{}
	}
	return ir.Encode(trackJSON{
		Index:     t.Index,
		Subtracks: t.Subtracks,
		Title:     t.Title,
		Tunes:     tunes,
	})
}
