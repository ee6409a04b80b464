package method

import (
	"context"
	"fmt"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/tape"
)

const module = "rekorder.method"

// Type tags of the wrapper family.
var (
	ParamsType     = tape.TypeRef{Module: module, Class: "Parameters"}
	ReturnType     = tape.TypeRef{Module: module, Class: "Return"}
	ExceptionType  = tape.TypeRef{Module: module, Class: "Exception"}
	RepositoryType = tape.TypeRef{Module: module, Class: "Repository"}
	EverythingType = tape.TypeRef{Module: module, Class: "Everything"}
)

// Interceptor wraps a function with capture logic.
type Interceptor interface {
	Wrap(name string, next device.Func) device.Func
}

// Chain applies interceptors in source nesting order: the first one listed
// is outermost.
func Chain(name string, fn device.Func, interceptors ...Interceptor) device.Func {
	for i := len(interceptors) - 1; i >= 0; i-- {
		fn = interceptors[i].Wrap(name, fn)
	}
	return fn
}

// Params captures the arguments of a call.
type Params struct {
	device.Base
	when tape.When
}

// NewParams creates a Params wrapper. NA selects BEFORE.
func NewParams(opts device.Options, when tape.When) (*Params, error) {
	base, err := device.NewBase(ParamsType, opts)
	if err != nil {
		return nil, err
	}
	if when == tape.NA {
		when = tape.BEFORE
	}
	if !when.Before() && !when.After() {
		return nil, tape.ConfigError("%s: unsupported qualifier %s", ParamsType, when)
	}
	return &Params{Base: base, when: when}, nil
}

// Wrap implements Interceptor.
func (p *Params) Wrap(name string, next device.Func) device.Func {
	id := device.ParseFuncID(name)
	return func(ctx context.Context, call device.Call) (any, error) {
		if !p.Recording() {
			return next(ctx, call)
		}
		if p.when.Before() {
			if _, err := p.Submit(p, argNotes(id, call), tape.BEFORE); err != nil {
				return nil, err
			}
		}
		rval, err := next(ctx, call)
		if err != nil || !p.when.After() {
			return rval, err
		}
		if _, err := p.Submit(p, argNotes(id, call), tape.AFTER); err != nil {
			return nil, err
		}
		return rval, nil
	}
}

// Describe implements tape.Device.
func (p *Params) Describe(t *tape.Tune) string {
	fn := t.Notes.Object("function")
	return fmt.Sprintf("MethodParameters %s(%s)", fn.String("qualname"), signature(fn))
}

func argNotes(id device.FuncID, call device.Call) ir.IRObject {
	fn := id.Notes()
	fn["args"], fn["kwargs"] = call.Notes()
	return ir.IRObject{"function": fn}
}

func signature(fn ir.IRObject) string {
	args, _ := fn["args"].(ir.IRArray)
	kwargs, _ := fn["kwargs"].(ir.IRObject)
	return device.Signature(args, kwargs)
}

// Return captures the return value of a call.
//
// With mock set, record mode runs the call inside a "mock" sub-track, and
// validate mode skips the call entirely and returns the recorded value.
// Substituted values come back as the plain types ir.Native produces.
type Return struct {
	device.Base
	when tape.When
	mock bool
}

// MockTrack is the sub-track a mocked call records into.
const MockTrack = "mock"

// NewReturn creates a Return wrapper. NA selects AFTER. A mock needs an
// AFTER capture to substitute from.
func NewReturn(opts device.Options, when tape.When, mock bool) (*Return, error) {
	base, err := device.NewBase(ReturnType, opts)
	if err != nil {
		return nil, err
	}
	if when == tape.NA {
		when = tape.AFTER
	}
	if !when.Before() && !when.After() {
		return nil, tape.ConfigError("%s: unsupported qualifier %s", ReturnType, when)
	}
	if mock && !when.After() {
		return nil, tape.ConfigError("%s: a mocked return must be captured after the call", ReturnType)
	}
	return &Return{Base: base, when: when, mock: mock}, nil
}

// Wrap implements Interceptor.
func (r *Return) Wrap(name string, next device.Func) device.Func {
	id := device.ParseFuncID(name)
	return func(ctx context.Context, call device.Call) (any, error) {
		if !r.Recording() {
			return next(ctx, call)
		}
		if r.when.Before() {
			if _, err := r.Submit(r, r.notes(id, nil, false), tape.BEFORE); err != nil {
				return nil, err
			}
		}

		var rval any
		var err error
		switch {
		case r.mock && r.Mode() == tape.ModeValidate:
			rval, err = r.substitute(id)
		case r.mock:
			rval, err = r.isolate(ctx, next, call)
		default:
			rval, err = next(ctx, call)
		}
		if err != nil || !r.when.After() {
			return rval, err
		}

		if _, err := r.Submit(r, r.notes(id, rval, true), tape.AFTER); err != nil {
			return nil, err
		}
		return rval, nil
	}
}

func (r *Return) notes(id device.FuncID, rval any, after bool) ir.IRObject {
	fn := id.Notes()
	fn["mock"] = ir.IRBool(r.mock)
	if after {
		fn["rval"] = ir.Sanitize(rval)
	}
	return ir.IRObject{"function": fn}
}

// isolate runs the real call inside the mock sub-track. The sub-track is
// concluded even when next panics.
func (r *Return) isolate(ctx context.Context, next device.Func, call device.Call) (rval any, err error) {
	tracks := r.Host().Tracks()
	tracks.BeginSubtrack(MockTrack)
	defer func() {
		if cerr := tracks.ConcludeSubtrack(MockTrack); cerr != nil && err == nil {
			rval, err = nil, cerr
		}
	}()
	return next(ctx, call)
}

// substitute returns the value recorded by the expected AFTER tune.
func (r *Return) substitute(id device.FuncID) (any, error) {
	expected := r.Host().PeekExpected()
	if expected == nil || expected.Type() != ReturnType || expected.When != tape.AFTER {
		return nil, tape.ValidationError(r.Host().Tracks().Phase(), expected, nil,
			"no recorded return value to substitute for %s", id.Qualname)
	}
	fn := expected.Notes.Object("function")
	if fn.String("qualname") != id.Qualname {
		return nil, tape.ValidationError(r.Host().Tracks().Phase(), expected, nil,
			"recorded return value belongs to %s, not %s", fn.String("qualname"), id.Qualname)
	}
	r.Logger().Debug("substituting recorded return value", "function", id.Qualname)
	return ir.Native(fn.Get("rval")), nil
}

// Describe implements tape.Device.
func (r *Return) Describe(t *tape.Tune) string {
	fn := t.Notes.Object("function")
	mock := fn.Get("mock") == ir.IRBool(true)
	desc := fmt.Sprintf("MethodReturn %s [mock:%t]", fn.String("qualname"), mock)
	if rval, ok := fn["rval"]; ok {
		desc += " -> [" + ir.Brief(rval) + "]"
	}
	return desc
}
