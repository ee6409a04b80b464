package device

import (
	"log/slog"
	"time"

	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// Host is what a device submits tunes to. The recorder implements it.
type Host interface {
	Name() string
	Mode() tape.Mode
	Record(t *tape.Tune) error
	Tracks() *tape.TrackManager
	// PeekExpected returns the next expected tune of the current phase
	// without consuming it. Outside validate mode it returns nil.
	PeekExpected() *tape.Tune
	Now() time.Time
	Logger() *slog.Logger
}

// Options select how a device is initialized.
type Options struct {
	Mode tape.Mode
	Host Host
}

// Base carries the mode and host of a device. Concrete devices embed it.
type Base struct {
	ref  tape.TypeRef
	mode tape.Mode
	host Host
}

// NewBase resolves the device's mode from opts.
//
// Neither mode nor host is a config error, as is a mode that disagrees
// with the host's. Record and validate paths require a host.
func NewBase(ref tape.TypeRef, opts Options) (Base, error) {
	mode := opts.Mode
	switch {
	case mode == tape.ModeUnset && opts.Host == nil:
		return Base{}, tape.ConfigError("%s: a mode or a host is required", ref)
	case opts.Host != nil && mode != tape.ModeUnset && mode != opts.Host.Mode():
		return Base{}, tape.ConfigError("%s: mode %s disagrees with host %q mode %s",
			ref, mode, opts.Host.Name(), opts.Host.Mode())
	case opts.Host != nil:
		mode = opts.Host.Mode()
	}
	if mode.Recording() && opts.Host == nil {
		return Base{}, tape.ConfigError("%s: %s mode requires a host", ref, mode)
	}
	return Base{ref: ref, mode: mode, host: opts.Host}, nil
}

// Bind returns the Base of a device created by host itself; such a device
// always inherits the host's mode.
func Bind(ref tape.TypeRef, host Host) Base {
	return Base{ref: ref, host: host}
}

// FromSeed builds the Base of a playback instance rebuilt from disk.
func FromSeed(seed tape.Seed) Base {
	return Base{ref: seed.Ref, mode: seed.Mode}
}

// Type returns the device's type tag.
func (b *Base) Type() tape.TypeRef { return b.ref }

// Mode returns the host's current mode, or the fixed one when unbound.
func (b *Base) Mode() tape.Mode {
	if b.host != nil {
		return b.host.Mode()
	}
	return b.mode
}

// Host returns the bound host, or nil.
func (b *Base) Host() Host { return b.host }

// Recordable reports whether the device may record in track.
// The default is the recording track only.
func (b *Base) Recordable(track string) bool {
	return track == tape.TrackRecording
}

// Recording reports whether descriptions should use the live form.
func (b *Base) Recording() bool {
	return b.Mode().Recording()
}

// Stamp returns the current time according to the host.
func (b *Base) Stamp() tape.Timestamp {
	return tape.NewTimestamp(b.Now())
}

// Now reads the host's clock, or the wall clock for a device without one.
func (b *Base) Now() time.Time {
	if b.host != nil {
		return b.host.Now()
	}
	return time.Now()
}

// Submit records a tune for self through the host. self is the concrete
// device embedding b.
func (b *Base) Submit(self tape.Device, notes ir.IRObject, when tape.When) (*tape.Tune, error) {
	if b.host == nil {
		return nil, tape.ConfigError("%s: cannot record without a host", b.ref)
	}
	if !b.Mode().Recording() {
		return nil, tape.ConfigError("%s: cannot record in %s mode", b.ref, b.Mode())
	}
	tune := tape.NewTune(self, notes, when, b.Stamp())
	if err := b.host.Record(tune); err != nil {
		return nil, err
	}
	return tune, nil
}

// Logger returns the host's logger, or the default one.
func (b *Base) Logger() *slog.Logger {
	if b.host != nil {
		if l := b.host.Logger(); l != nil {
			return l
		}
	}
	return slog.Default()
}
