package tape

import (
	"time"
)

// TypeRef is the stable tag identifying the kind of device behind a tune.
// It is what gets written to disk and what the Registry resolves on load.
type TypeRef struct {
	Class  string `json:"class"`
	Module string `json:"module"`
}

// String renders the tag as "module.Class".
func (r TypeRef) String() string {
	if r.Module == "" {
		return r.Class
	}
	return r.Module + "." + r.Class
}

// IsZero reports whether the tag is empty.
func (r TypeRef) IsZero() bool {
	return r.Class == "" && r.Module == ""
}

// Clock returns the current time. Tests inject a deterministic one.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// Timestamp is the persisted form of a capture time: fractional unix
// seconds plus the local time rendered for humans.
type Timestamp struct {
	Localtime string  `json:"localtime"`
	Time      float64 `json:"time"`
}

// NewTimestamp converts t into a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{
		Localtime: t.Local().Format(time.ANSIC),
		Time:      float64(t.UnixNano()) / 1e9,
	}
}

// IsZero reports whether the timestamp was never set.
func (ts Timestamp) IsZero() bool {
	return ts.Time == 0 && ts.Localtime == ""
}

// AsTime converts the stored seconds back into a time.Time.
func (ts Timestamp) AsTime() time.Time {
	sec := int64(ts.Time)
	nsec := int64((ts.Time - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
