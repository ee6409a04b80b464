package tape

import (
	"fmt"
)

// Mode is the operating mode of a device.
// The zero value is unset; constructors reject it unless a host supplies one.
type Mode int

const (
	ModeUnset Mode = iota
	ModeRecord
	ModePlayback
	ModeDescribe
	ModeValidate
)

var modeNames = map[Mode]string{
	ModeUnset:    "unset",
	ModeRecord:   "record",
	ModePlayback: "playback",
	ModeDescribe: "describe",
	ModeValidate: "validate",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Recording reports whether devices in this mode submit tunes.
func (m Mode) Recording() bool {
	return m == ModeRecord || m == ModeValidate
}

// When qualifies the point of a call at which a tune was captured.
type When int

const (
	NA When = iota
	BEFORE
	AFTER
	AROUND
	EXCEPTION
)

var whenNames = [...]string{"NA", "BEFORE", "AFTER", "AROUND", "EXCEPTION"}

func (w When) String() string {
	if w >= 0 && int(w) < len(whenNames) {
		return whenNames[w]
	}
	return fmt.Sprintf("When(%d)", int(w))
}

// Before reports whether a wrapper with this qualifier captures before the call.
func (w When) Before() bool { return w == BEFORE || w == AROUND }

// After reports whether a wrapper with this qualifier captures after the call.
func (w When) After() bool { return w == AFTER || w == AROUND }

// MarshalText implements encoding.TextMarshaler.
func (w When) MarshalText() ([]byte, error) {
	if w < 0 || int(w) >= len(whenNames) {
		return nil, fmt.Errorf("invalid when qualifier %d", int(w))
	}
	return []byte(whenNames[w]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *When) UnmarshalText(text []byte) error {
	for i, name := range whenNames {
		if name == string(text) {
			*w = When(i)
			return nil
		}
	}
	return fmt.Errorf("invalid when qualifier %q", string(text))
}
