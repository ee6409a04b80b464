// Package demo is a small instrumented program used by the demo binary
// and by end-to-end tests: a division routine fully instrumented, and a
// routine whose expensive dependency is mocked.
package demo

import (
	"context"
	"fmt"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/method"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// Qualified names of the demo functions.
const (
	RunName    = "demo.run"
	BazName    = "demo.baz"
	AnswerName = "demo.answer"
	OracleName = "demo.oracle"
)

// DivisionError is returned by Baz when b is zero.
type DivisionError struct {
	Dividend float64
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("float division by zero (%g / 0)", e.Dividend)
}

// Baz returns a / b. The third argument is only carried into the
// recording.
func Baz(_ context.Context, call device.Call) (any, error) {
	a, err := call.Float(0)
	if err != nil {
		return nil, err
	}
	b, err := call.Float(1)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, &DivisionError{Dividend: a}
	}
	return a / b, nil
}

// Run is the entrypoint of the division routine. Every call to baz is
// recorded with its parameters, its result and any failure.
func Run(h device.Host) device.Func {
	return func(ctx context.Context, call device.Call) (any, error) {
		all, err := method.Factory{Host: h}.Everything()
		if err != nil {
			return nil, err
		}
		return all.Wrap(BazName, Baz)(ctx, call)
	}
}

// Oracle stands for a slow or unreachable dependency.
func Oracle(_ context.Context, _ device.Call) (any, error) {
	return 42, nil
}

// Answer returns the entrypoint of a routine that consults oracle through
// a mock: validation replays the recorded answer instead of calling it.
func Answer(oracle device.Func) device.Entrypoint {
	return func(h device.Host) device.Func {
		return func(ctx context.Context, call device.Call) (any, error) {
			f := method.Factory{Host: h}
			mock, err := f.Mock()
			if err != nil {
				return nil, err
			}
			params, err := f.Params(tape.NA)
			if err != nil {
				return nil, err
			}
			ask := method.Chain(OracleName, oracle, mock, params)
			v, err := ask(ctx, call)
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("the answer is %v", v), nil
		}
	}
}

// Catalog registers every demo entrypoint.
func Catalog() *device.Catalog {
	c := device.NewCatalog()
	_ = c.Register(RunName, Run)
	_ = c.Register(AnswerName, Answer(Oracle))
	return c
}
