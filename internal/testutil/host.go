package testutil

import (
	"io"
	"log/slog"
	"time"

	"github.com/jcejohnson/rekorder/internal/tape"
)

// Host is an in-memory device.Host for unit tests.
//
// It enforces the same legality rule as the cassette (the device must be
// recordable in the current phase) but never persists. Expected, when set,
// backs PeekExpected so wrappers can be exercised in validate mode without
// a full recorder.
type Host struct {
	HostName string
	HostMode tape.Mode
	Manager  *tape.TrackManager
	Expected *tape.TrackManager
	Clock    *DeterministicClock
	Recorded []*tape.Tune
	// Fail, when set, is returned from Record instead of appending.
	Fail error
}

// NewHost creates a host in mode with fresh tracks and a deterministic clock.
func NewHost(mode tape.Mode) *Host {
	return &Host{
		HostName: "test",
		HostMode: mode,
		Manager:  tape.NewTrackManager(),
		Clock:    NewDeterministicClock(),
	}
}

func (h *Host) Name() string               { return h.HostName }
func (h *Host) Mode() tape.Mode            { return h.HostMode }
func (h *Host) Tracks() *tape.TrackManager { return h.Manager }
func (h *Host) Now() time.Time             { return h.Clock.Now() }

// Logger discards everything.
func (h *Host) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Record checks legality and appends.
func (h *Host) Record(t *tape.Tune) error {
	if h.Fail != nil {
		return h.Fail
	}
	phase := h.Manager.Phase()
	if !t.Device.Recordable(phase) {
		return tape.LegalityError(h.Manager.Current().Title, t.Type(), "device may not record here")
	}
	h.Manager.Append(t)
	h.Recorded = append(h.Recorded, t)
	if h.Expected != nil && h.HostMode == tape.ModeValidate {
		if track := h.Expected.Track(phase); track != nil && !h.Manager.InSubtrack() {
			track.Next()
		}
	}
	return nil
}

// PeekExpected returns the next expected tune in the current phase.
func (h *Host) PeekExpected() *tape.Tune {
	if h.Expected == nil || h.HostMode != tape.ModeValidate {
		return nil
	}
	if track := h.Expected.Track(h.Manager.Phase()); track != nil {
		return track.Peek()
	}
	return nil
}
