package recorder

import (
	"github.com/jcejohnson/rekorder/internal/cassette"
	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/method"
	"github.com/jcejohnson/rekorder/internal/repository"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// RegisterBuiltins adds a decoder for every device this module records.
// Repository tunes restore through snap; nil selects git.
func RegisterBuiltins(reg *tape.Registry, snap repository.Snapshotter) error {
	if snap == nil {
		snap = repository.Git{}
	}
	if err := cassette.Register(reg); err != nil {
		return err
	}
	own := map[tape.TypeRef]tape.Constructor{
		IdentityType: func(s tape.Seed) (tape.Device, error) {
			return &Identity{Base: device.FromSeed(s)}, nil
		},
		CliStateType: func(s tape.Seed) (tape.Device, error) {
			return &CliState{Base: device.FromSeed(s)}, nil
		},
		BeginType: func(s tape.Seed) (tape.Device, error) {
			return &Begin{Base: device.FromSeed(s)}, nil
		},
		EndType: func(s tape.Seed) (tape.Device, error) {
			return &End{Base: device.FromSeed(s)}, nil
		},
	}
	for _, ref := range []tape.TypeRef{IdentityType, CliStateType, BeginType, EndType} {
		if err := reg.Register(ref, own[ref]); err != nil {
			return err
		}
	}
	if err := reg.Register(repository.StateType, repository.Decoder(snap)); err != nil {
		return err
	}
	return method.Register(reg, snap)
}

// Builtins returns a registry holding every builtin decoder.
func Builtins(snap repository.Snapshotter) (*tape.Registry, error) {
	reg := tape.NewRegistry()
	if err := RegisterBuiltins(reg, snap); err != nil {
		return nil, err
	}
	return reg, nil
}
