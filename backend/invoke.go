package backend

import (
	"fmt"
	"reflect"
)

// errorType is the reflect.Type of the error interface.
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// callFunc invokes fn with args via reflection. fn must be a func value.
// Result conventions: a trailing error return is unwrapped and surfaced
// as the invoke error; zero non-error results yield nil; one yields the
// value; several yield a []any.
func callFunc(fn reflect.Value, args []any) (any, error) {
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("entry symbol is %s, not a function", fn.Kind())
	}

	t := fn.Type()
	if t.IsVariadic() {
		if len(args) < t.NumIn()-1 {
			return nil, fmt.Errorf("entry takes at least %d arguments, got %d", t.NumIn()-1, len(args))
		}
	} else if len(args) != t.NumIn() {
		return nil, fmt.Errorf("entry takes %d arguments, got %d", t.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := paramType(t, i)
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		av := reflect.ValueOf(arg)
		if !av.Type().AssignableTo(pt) {
			if av.Type().ConvertibleTo(pt) {
				av = av.Convert(pt)
			} else {
				return nil, fmt.Errorf("argument %d: %s is not assignable to %s", i, av.Type(), pt)
			}
		}
		in[i] = av
	}

	out := fn.Call(in)

	// Unwrap a trailing error return.
	var callErr error
	if n := len(out); n > 0 && t.Out(n-1).Implements(errorType) {
		if !out[n-1].IsNil() {
			callErr = out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, callErr
	case 1:
		return out[0].Interface(), callErr
	default:
		results := make([]any, len(out))
		for i, v := range out {
			results[i] = v.Interface()
		}
		return results, callErr
	}
}

// paramType returns the type of parameter i, unrolling variadics.
func paramType(t reflect.Type, i int) reflect.Type {
	if t.IsVariadic() && i >= t.NumIn()-1 {
		return t.In(t.NumIn() - 1).Elem()
	}
	return t.In(i)
}
