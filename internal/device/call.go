package device

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jcejohnson/rekorder/internal/ir"
)

// Call carries the arguments of one invocation of an instrumented function.
type Call struct {
	Args   []any
	Kwargs map[string]any
}

// Args is shorthand for a call with positional arguments only.
func Args(args ...any) Call {
	return Call{Args: args}
}

// Func is the shape every instrumented function is adapted to.
type Func func(ctx context.Context, call Call) (any, error)

// Notes returns the sanitized arguments as {args, kwargs}.
func (c Call) Notes() (ir.IRArray, ir.IRObject) {
	args := make(ir.IRArray, len(c.Args))
	for i, a := range c.Args {
		args[i] = ir.Sanitize(a)
	}
	return args, ir.SanitizeObject(c.Kwargs)
}

// CallFromNotes rebuilds a call from recorded args and kwargs.
func CallFromNotes(args ir.IRValue, kwargs ir.IRValue) Call {
	var c Call
	if arr, ok := args.(ir.IRArray); ok {
		c.Args = make([]any, len(arr))
		for i, v := range arr {
			c.Args[i] = ir.Native(v)
		}
	}
	if obj, ok := kwargs.(ir.IRObject); ok && len(obj) > 0 {
		c.Kwargs = make(map[string]any, len(obj))
		for k, v := range obj {
			c.Kwargs[k] = ir.Native(v)
		}
	}
	return c
}

// Float returns positional argument i as a float64. Recorded arguments come
// back as int64 or float64, live ones as any numeric kind.
func (c Call) Float(i int) (float64, error) {
	if i >= len(c.Args) {
		return 0, fmt.Errorf("argument %d missing", i)
	}
	switch v := ir.Sanitize(c.Args[i]).(type) {
	case ir.IRInt:
		return float64(v), nil
	case ir.IRFloat:
		return float64(v), nil
	}
	return 0, fmt.Errorf("argument %d is %T, not a number", i, c.Args[i])
}

// Signature renders the arguments as "a, b, k=v".
func Signature(args ir.IRArray, kwargs ir.IRObject) string {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		parts = append(parts, argString(a))
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+argString(kwargs[k]))
	}
	return strings.Join(parts, ", ")
}

// argString renders one argument, keeping strings quoted.
func argString(v ir.IRValue) string {
	if s, ok := v.(ir.IRString); ok {
		return strconv.Quote(string(s))
	}
	return ir.Brief(v)
}
