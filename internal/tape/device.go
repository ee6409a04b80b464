package tape

import (
	"fmt"
	"time"

	"github.com/jcejohnson/rekorder/internal/ir"
)

// Device is anything that produces or consumes tunes.
//
// Recordable is consulted by the cassette before every append with the
// phase (root track title) the cursor sits in. Describe renders one tune
// the device produced, in the form appropriate to the device's mode.
type Device interface {
	Type() TypeRef
	Mode() Mode
	Recordable(track string) bool
	Describe(t *Tune) string
}

// Essential is implemented by devices whose tunes carry volatile notes
// (tracebacks, paths) that must not take part in validation.
type Essential interface {
	Essence(notes ir.IRObject) ir.IRObject
}

// Composite is implemented by devices built from other devices.
type Composite interface {
	Parts() []Device
}

// Alias is implemented by devices that record on behalf of another device.
// The standin's identity is what gets written to disk.
type Alias interface {
	Standin() Device
}

// Clocked is implemented by devices that know the time of the run they
// belong to. NewTune stamps their tunes with it.
type Clocked interface {
	Now() time.Time
}

// Resolve follows Alias chains to the device whose identity is recorded.
func Resolve(d Device) Device {
	for i := 0; i < 8; i++ {
		a, ok := d.(Alias)
		if !ok {
			return d
		}
		next := a.Standin()
		if next == nil || next == d {
			return d
		}
		d = next
	}
	return d
}

// Essence returns the notes of t that validation compares.
func Essence(t *Tune) ir.IRObject {
	if e, ok := Resolve(t.Device).(Essential); ok {
		return e.Essence(t.Notes)
	}
	return t.Notes
}

// Opaque stands in for a device whose type tag has no registered
// constructor. It can be described and compared but never recorded.
type Opaque struct {
	Ref  TypeRef
	mode Mode
}

// NewOpaque returns an Opaque device for ref.
func NewOpaque(ref TypeRef, mode Mode) *Opaque {
	return &Opaque{Ref: ref, mode: mode}
}

func (o *Opaque) Type() TypeRef          { return o.Ref }
func (o *Opaque) Mode() Mode             { return o.mode }
func (o *Opaque) Recordable(string) bool { return false }

func (o *Opaque) Describe(t *Tune) string {
	return fmt.Sprintf("<%s> %s", o.Ref, ir.Brief(t.Notes))
}
