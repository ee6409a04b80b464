package tape

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a fatal engine error. Nothing that returns one retries.
//
// Kinds:
//   - config: bad construction (missing mode or host, mismatched modes,
//     missing path, duplicate registration)
//   - legality: a device recording on a track it may not use, a backward or
//     unknown track transition, or an unbalanced sub-track
//   - reuse: an at-most-once guard tripped
//   - validation: a live tune diverged from the recorded expectation
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// Track is the track involved, if any.
	Track string

	// Device is the device involved, if any.
	Device TypeRef

	// Expected and Actual are set on validation errors.
	Expected *Tune
	Actual   *Tune
}

// ErrorKind categorizes engine errors.
type ErrorKind string

const (
	ErrKindConfig     ErrorKind = "CONFIG"
	ErrKindLegality   ErrorKind = "LEGALITY"
	ErrKindReuse      ErrorKind = "REUSE"
	ErrKindValidation ErrorKind = "VALIDATION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if !e.Device.IsZero() {
		fmt.Fprintf(&b, " (device=%s", e.Device)
		if e.Track != "" {
			fmt.Fprintf(&b, ", track=%s", e.Track)
		}
		b.WriteString(")")
	} else if e.Track != "" {
		fmt.Fprintf(&b, " (track=%s)", e.Track)
	}
	if e.Kind == ErrKindValidation {
		fmt.Fprintf(&b, "\n  expected: %s\n  actual:   %s", summarize(e.Expected), summarize(e.Actual))
	}
	return b.String()
}

func summarize(t *Tune) string {
	if t == nil {
		return "<none>"
	}
	return t.String()
}

func kindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsConfigError returns true if err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool { return kindOf(err) == ErrKindConfig }

// IsLegalityError returns true if err is a state-machine legality violation.
func IsLegalityError(err error) bool { return kindOf(err) == ErrKindLegality }

// IsReuseError returns true if err is an at-most-once violation.
func IsReuseError(err error) bool { return kindOf(err) == ErrKindReuse }

// IsValidationError returns true if err is a validation mismatch.
func IsValidationError(err error) bool { return kindOf(err) == ErrKindValidation }

// ConfigError creates a configuration error.
func ConfigError(format string, args ...any) *Error {
	return &Error{Kind: ErrKindConfig, Message: fmt.Sprintf(format, args...)}
}

// LegalityError creates a legality error for a track transition or append.
func LegalityError(track string, device TypeRef, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrKindLegality,
		Message: fmt.Sprintf(format, args...),
		Track:   track,
		Device:  device,
	}
}

// ReuseError creates an error for a second use of an at-most-once device.
func ReuseError(device TypeRef) *Error {
	return &Error{
		Kind:    ErrKindReuse,
		Message: "device may only be used once",
		Device:  device,
	}
}

// ValidationError creates a mismatch error naming both tunes.
func ValidationError(track string, expected, actual *Tune, format string, args ...any) *Error {
	e := &Error{
		Kind:     ErrKindValidation,
		Message:  fmt.Sprintf(format, args...),
		Track:    track,
		Expected: expected,
		Actual:   actual,
	}
	if actual != nil {
		e.Device = actual.Type()
	} else if expected != nil {
		e.Device = expected.Type()
	}
	return e
}
