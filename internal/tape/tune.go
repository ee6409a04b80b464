package tape

import (
	"fmt"

	"github.com/jcejohnson/rekorder/internal/ir"
)

// Tune is one recorded occurrence.
type Tune struct {
	Device    Device
	Notes     ir.IRObject
	When      When
	Timestamp Timestamp
}

// NewTune creates a tune for d. Notes are deep-copied; a zero timestamp
// means now on the device's clock, or the wall clock when d has none.
func NewTune(d Device, notes ir.IRObject, when When, ts Timestamp) *Tune {
	if ts.IsZero() {
		now := SystemClock
		if c, ok := clockOf(d); ok {
			now = c.Now
		}
		ts = NewTimestamp(now())
	}
	return &Tune{
		Device:    d,
		Notes:     ir.CloneObject(notes),
		When:      when,
		Timestamp: ts,
	}
}

// clockOf finds the clock of d, or of the device it stands in for.
func clockOf(d Device) (Clocked, bool) {
	if c, ok := d.(Clocked); ok {
		return c, true
	}
	if d == nil {
		return nil, false
	}
	c, ok := Resolve(d).(Clocked)
	return c, ok
}

// Type returns the recorded identity of the tune's device.
func (t *Tune) Type() TypeRef {
	if t.Device == nil {
		return TypeRef{}
	}
	return Resolve(t.Device).Type()
}

// Describe renders the tune on one line.
func (t *Tune) Describe() string {
	if t.Device == nil {
		return ir.Brief(t.Notes)
	}
	desc := Resolve(t.Device).Describe(t)
	if t.When != NA {
		return fmt.Sprintf("[%s] %s", t.When, desc)
	}
	return desc
}

// String is a compact form used in error messages.
func (t *Tune) String() string {
	return fmt.Sprintf("%s when=%s notes=%s", t.Type(), t.When, ir.Brief(t.Notes))
}

// Fingerprint digests the parts of the tune that validation compares.
func (t *Tune) Fingerprint() (string, error) {
	return ir.Digest(ir.DomainTune, ir.IRObject{
		"device": ir.IRString(t.Type().String()),
		"when":   ir.IRString(t.When.String()),
		"notes":  Essence(t),
	})
}

// Matches reports whether actual is the live counterpart of expected:
// same device identity, same qualifier and equal essential notes.
// Timestamps are never compared.
func Matches(expected, actual *Tune) bool {
	if expected == nil || actual == nil {
		return expected == actual
	}
	if expected.Type() != actual.Type() || expected.When != actual.When {
		return false
	}
	return ir.Equal(Essence(expected), Essence(actual))
}

// tuneJSON is the persisted form. Fields are declared in key order so the
// encoder writes them sorted.
type tuneJSON struct {
	Device    TypeRef     `json:"device"`
	Notes     ir.IRObject `json:"notes"`
	Timestamp Timestamp   `json:"timestamp"`
	When      When        `json:"when,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (t *Tune) MarshalJSON() ([]byte, error) {
	notes := t.Notes
	if notes == nil {
		notes = ir.IRObject{}
	}
	return ir.Encode(tuneJSON{
		Device:    t.Type(),
		Notes:     notes,
		Timestamp: t.Timestamp,
		When:      t.When,
	})
}
