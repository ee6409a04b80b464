package method

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// PanicRecordingError replaces a panic whose exception tune could not be
// recorded, for example because it diverged from the recording. Value is
// the original panic value.
type PanicRecordingError struct {
	Value any
	Err   error
}

func (e *PanicRecordingError) Error() string {
	return fmt.Sprintf("recording panic %v: %v", e.Value, e.Err)
}

func (e *PanicRecordingError) Unwrap() error { return e.Err }

// Exception records the errors a call returns and the panics it raises.
// The caller sees the original failure: the same error value is returned
// and the same panic value is re-raised. Only when the panic itself cannot
// be recorded is it re-raised as a *PanicRecordingError.
type Exception struct {
	device.Base
}

// NewException creates an Exception wrapper.
func NewException(opts device.Options) (*Exception, error) {
	base, err := device.NewBase(ExceptionType, opts)
	if err != nil {
		return nil, err
	}
	return &Exception{Base: base}, nil
}

// Wrap implements Interceptor.
func (e *Exception) Wrap(name string, next device.Func) device.Func {
	id := device.ParseFuncID(name)
	return func(ctx context.Context, call device.Call) (rval any, err error) {
		if !e.Recording() {
			return next(ctx, call)
		}
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if _, rerr := e.Submit(e, panicNotes(id, p), tape.EXCEPTION); rerr != nil {
				e.Logger().Error("recording panic failed", "function", id.Qualname, "error", rerr)
				panic(&PanicRecordingError{Value: p, Err: rerr})
			}
			panic(p)
		}()

		rval, err = next(ctx, call)
		if err == nil || isRecordingError(err) {
			return rval, err
		}
		if _, rerr := e.Submit(e, errorNotes(id, err), tape.EXCEPTION); rerr != nil {
			return nil, rerr
		}
		return rval, err
	}
}

// isRecordingError reports whether err came from the recording machinery
// itself rather than from the instrumented code.
func isRecordingError(err error) bool {
	var te *tape.Error
	return errors.As(err, &te)
}

func errorNotes(id device.FuncID, err error) ir.IRObject {
	return ir.IRObject{
		"function":  id.Notes(),
		"class":     ir.IRString(className(err)),
		"message":   ir.IRString(err.Error()),
		"traceback": traceback(fmt.Sprintf("%+v", err)),
	}
}

func panicNotes(id device.FuncID, p any) ir.IRObject {
	message := fmt.Sprint(p)
	if err, ok := p.(error); ok {
		message = err.Error()
	}
	return ir.IRObject{
		"function":  id.Notes(),
		"class":     ir.IRString(className(p)),
		"message":   ir.IRString(message),
		"traceback": traceback(string(debug.Stack())),
	}
}

// className names the dynamic type of v without package or pointer.
func className(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return fmt.Sprintf("%T", v)
	}
	return t.Name()
}

func traceback(s string) ir.IRArray {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	out := make(ir.IRArray, len(lines))
	for i, l := range lines {
		out[i] = ir.IRString(l)
	}
	return out
}

// Essence drops the traceback: stacks differ between runs.
func (e *Exception) Essence(notes ir.IRObject) ir.IRObject {
	out := make(ir.IRObject, len(notes))
	for k, v := range notes {
		if k != "traceback" {
			out[k] = v
		}
	}
	return out
}

// Describe implements tape.Device.
func (e *Exception) Describe(t *tape.Tune) string {
	last := ""
	if tb, ok := t.Notes["traceback"].(ir.IRArray); ok && len(tb) > 0 {
		last = strings.TrimSpace(ir.Brief(tb[len(tb)-1]))
	}
	return fmt.Sprintf("MethodException %s [%s] [%s] [%s]",
		t.Notes.Object("function").String("qualname"),
		t.Notes.String("class"), t.Notes.String("message"), last)
}
