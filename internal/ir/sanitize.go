package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// Sanitize converts a live Go value into an IRValue.
//
// Maps become objects (keys rendered with fmt.Sprint), slices and arrays
// become arrays, every integer kind becomes IRInt and every float kind
// becomes IRFloat. NaN and the infinities are stored as their string form.
// Anything else that is not representable is replaced by its fmt.Sprint
// rendering. The result never shares containers with v.
func Sanitize(v any) IRValue {
	return sanitize(v, 0)
}

// Keeps self-referencing structures from recursing forever.
const maxSanitizeDepth = 64

func sanitize(v any, depth int) IRValue {
	if depth > maxSanitizeDepth {
		return IRString(fmt.Sprint(v))
	}
	switch val := v.(type) {
	case nil:
		return IRNull{}
	case IRValue:
		return Clone(val)
	case bool:
		return IRBool(val)
	case string:
		return IRString(val)
	case int:
		return IRInt(val)
	case int64:
		return IRInt(val)
	case float64:
		return sanitizeFloat(val)
	case json.Number:
		if raw, err := UnmarshalIRValue([]byte(val)); err == nil {
			return raw
		}
		return IRString(val.String())
	case error:
		return IRString(val.Error())
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			arr[i] = sanitize(elem, depth+1)
		}
		return arr
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			obj[k] = sanitize(elem, depth+1)
		}
		return obj
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return IRNull{}
		}
		return sanitize(rv.Elem().Interface(), depth+1)
	case reflect.Bool:
		return IRBool(rv.Bool())
	case reflect.String:
		return IRString(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IRInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return IRFloat(float64(u))
		}
		return IRInt(int64(u))
	case reflect.Float32, reflect.Float64:
		return sanitizeFloat(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return IRNull{}
		}
		arr := make(IRArray, rv.Len())
		for i := range arr {
			arr[i] = sanitize(rv.Index(i).Interface(), depth+1)
		}
		return arr
	case reflect.Map:
		if rv.IsNil() {
			return IRNull{}
		}
		obj := make(IRObject, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[fmt.Sprint(iter.Key().Interface())] = sanitize(iter.Value().Interface(), depth+1)
		}
		return obj
	}
	return IRString(fmt.Sprint(v))
}

func sanitizeFloat(f float64) IRValue {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return IRString(fmt.Sprint(f))
	}
	return IRFloat(f)
}

// SanitizeObject is Sanitize for a string-keyed map. A nil map yields an
// empty object rather than null.
func SanitizeObject(m map[string]any) IRObject {
	obj := make(IRObject, len(m))
	for k, v := range m {
		obj[k] = Sanitize(v)
	}
	return obj
}

// Clone deep-copies v. Scalars are returned as is.
func Clone(v IRValue) IRValue {
	switch val := v.(type) {
	case nil:
		return IRNull{}
	case IRArray:
		if val == nil {
			return IRNull{}
		}
		out := make(IRArray, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case IRObject:
		return CloneObject(val)
	default:
		return v
	}
}

// CloneObject deep-copies obj. A nil object clones to an empty one.
func CloneObject(obj IRObject) IRObject {
	out := make(IRObject, len(obj))
	for k, elem := range obj {
		out[k] = Clone(elem)
	}
	return out
}

// Equal reports whether a and b hold the same data.
// IRInt and IRFloat compare numerically; a missing value equals IRNull.
func Equal(a, b IRValue) bool {
	if a == nil {
		a = IRNull{}
	}
	if b == nil {
		b = IRNull{}
	}
	switch av := a.(type) {
	case IRNull:
		_, ok := b.(IRNull)
		return ok
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRInt:
		switch bv := b.(type) {
		case IRInt:
			return av == bv
		case IRFloat:
			return float64(av) == float64(bv)
		}
		return false
	case IRFloat:
		switch bv := b.(type) {
		case IRFloat:
			return av == bv
		case IRInt:
			return float64(av) == float64(bv)
		}
		return false
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, present := bv[k]
			if !present || !Equal(elem, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Native converts v back into plain Go values: nil, bool, int64, float64,
// string, []any and map[string]any.
func Native(v IRValue) any {
	switch val := v.(type) {
	case nil, IRNull:
		return nil
	case IRBool:
		return bool(val)
	case IRInt:
		return int64(val)
	case IRFloat:
		return float64(val)
	case IRString:
		return string(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Native(elem)
		}
		return out
	}
	return nil
}

// Brief renders v compactly for human-facing descriptions.
// Objects print with sorted keys; strings are unquoted at the top level.
func Brief(v IRValue) string {
	if s, ok := v.(IRString); ok {
		return string(s)
	}
	return brief(v)
}

func brief(v IRValue) string {
	switch val := v.(type) {
	case nil, IRNull:
		return "null"
	case IRString:
		return fmt.Sprintf("%q", string(val))
	case IRArray:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = brief(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case IRObject:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q: %s", k, brief(val[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		b, err := MarshalIRValue(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
