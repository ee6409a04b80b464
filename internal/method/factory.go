package method

import (
	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/repository"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// Factory creates wrappers bound to one host.
//
// When Decoders is set, every wrapper handed out is checked against it so
// a recording never holds tunes its playback could not rebuild.
type Factory struct {
	Host     device.Host
	Snap     repository.Snapshotter
	Decoders *tape.Registry
}

func (f Factory) opts() device.Options { return device.Options{Host: f.Host} }

func checked[D tape.Device](f Factory, d D, err error) (D, error) {
	if err != nil || f.Decoders == nil {
		return d, err
	}
	if err := f.Decoders.Check(d); err != nil {
		var zero D
		return zero, err
	}
	return d, nil
}

// Params returns a parameter wrapper recording at when.
func (f Factory) Params(when tape.When) (*Params, error) {
	p, err := NewParams(f.opts(), when)
	return checked(f, p, err)
}

// Return returns a return-value wrapper.
func (f Factory) Return(when tape.When, mock bool) (*Return, error) {
	r, err := NewReturn(f.opts(), when, mock)
	return checked(f, r, err)
}

// Mock returns an AFTER return wrapper that substitutes the recorded value
// during validation.
func (f Factory) Mock() (*Return, error) { return f.Return(tape.AFTER, true) }

// Exception returns a failure wrapper.
func (f Factory) Exception() (*Exception, error) {
	e, err := NewException(f.opts())
	return checked(f, e, err)
}

// Repository returns a repository-state wrapper over paths.
func (f Factory) Repository(when tape.When, paths ...string) (*Repository, error) {
	r, err := NewRepository(f.opts(), f.Snap, when, paths...)
	return checked(f, r, err)
}

// Everything returns the combined wrapper.
func (f Factory) Everything() (*Everything, error) {
	e, err := NewEverything(f.opts())
	return checked(f, e, err)
}

// Register adds decoders for every wrapper tune to reg. Repository tunes
// restore through snap.
func Register(reg *tape.Registry, snap repository.Snapshotter) error {
	ctors := map[tape.TypeRef]tape.Constructor{
		ParamsType: func(s tape.Seed) (tape.Device, error) {
			return &Params{Base: device.FromSeed(s), when: s.When}, nil
		},
		ReturnType: func(s tape.Seed) (tape.Device, error) {
			mock := s.Notes.Object("function").Get("mock")
			return &Return{Base: device.FromSeed(s), when: s.When, mock: mock == ir.IRBool(true)}, nil
		},
		ExceptionType: func(s tape.Seed) (tape.Device, error) {
			return &Exception{Base: device.FromSeed(s)}, nil
		},
		RepositoryType: func(s tape.Seed) (tape.Device, error) {
			return &Repository{Base: device.FromSeed(s), when: s.When, snap: snap}, nil
		},
	}
	for _, ref := range []tape.TypeRef{ParamsType, ReturnType, ExceptionType, RepositoryType} {
		if err := reg.Register(ref, ctors[ref]); err != nil {
			return err
		}
	}
	return nil
}
