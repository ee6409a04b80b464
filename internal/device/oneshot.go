package device

import (
	"github.com/jcejohnson/rekorder/internal/tape"
)

// OneShot guards an operation that may run at most once per instance.
type OneShot struct {
	ref  tape.TypeRef
	used bool
}

// NewOneShot returns a guard that names ref in its reuse error.
func NewOneShot(ref tape.TypeRef) OneShot {
	return OneShot{ref: ref}
}

// Use marks the guard used. A second call fails unless reset is set,
// which permits exactly one further use.
func (o *OneShot) Use(reset bool) error {
	if reset {
		o.used = false
	}
	if o.used {
		return tape.ReuseError(o.ref)
	}
	o.used = true
	return nil
}

// Used reports whether the guard has been tripped.
func (o *OneShot) Used() bool { return o.used }
