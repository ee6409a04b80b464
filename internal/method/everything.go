package method

import (
	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// Everything records parameters, return value and failures of a call:
// Params outermost, then Return, then Exception.
type Everything struct {
	params    *Params
	ret       *Return
	exception *Exception
}

// NewEverything creates the three wrappers bound per opts.
func NewEverything(opts device.Options) (*Everything, error) {
	params, err := NewParams(opts, tape.NA)
	if err != nil {
		return nil, err
	}
	ret, err := NewReturn(opts, tape.NA, false)
	if err != nil {
		return nil, err
	}
	exception, err := NewException(opts)
	if err != nil {
		return nil, err
	}
	return &Everything{params: params, ret: ret, exception: exception}, nil
}

// Wrap implements Interceptor.
func (e *Everything) Wrap(name string, next device.Func) device.Func {
	return Chain(name, next, e.params, e.ret, e.exception)
}

// Parts implements tape.Composite.
func (e *Everything) Parts() []tape.Device {
	return []tape.Device{e.params, e.ret, e.exception}
}

func (e *Everything) Type() tape.TypeRef         { return EverythingType }
func (e *Everything) Mode() tape.Mode            { return e.params.Mode() }
func (e *Everything) Recordable(string) bool     { return false }
func (e *Everything) Describe(*tape.Tune) string { return "MethodEverything" }
