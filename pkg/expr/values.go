package expr

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Value is an abstract value produced and consumed by expression evaluation.
// It defines string conversion and truthiness semantics.
type Value interface {
	String() string
	Truth() bool
}

// LookupHook can be implemented by host values that compute their
// attributes on demand. Member access (a.b) on such a value calls OnLookup.
type LookupHook interface {
	OnLookup(key string) (Value, bool)
}

// CallableValue wraps a Go function that templates can call. The scope is
// the one active at the call site, so utilities such as include see loop
// variables.
type CallableValue struct {
	Name string
	Fn   func(s *Scope, args []Value) (Value, error)
}

func (c CallableValue) String() string { return "<function " + c.Name + ">" }
func (c CallableValue) Truth() bool    { return true }

// NoneValue represents the absence of a value (null, undefined).
type NoneValue struct{}

func (NoneValue) String() string { return "" }
func (NoneValue) Truth() bool    { return false }

// BoolValue wraps a boolean.
type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b BoolValue) Truth() bool { return bool(b) }

// IntValue wraps an integer (64-bit).
type IntValue int64

func (i IntValue) String() string { return strconv.FormatInt(int64(i), 10) }
func (i IntValue) Truth() bool    { return int64(i) != 0 }

// FloatValue wraps a float (64-bit). Integral values print without a
// fractional part or exponent.
type FloatValue float64

func (f FloatValue) String() string {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == math.Trunc(v) && math.Abs(v) < 1e21:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
func (f FloatValue) Truth() bool { return float64(f) != 0 && !math.IsNaN(float64(f)) }

// StringValue wraps a string.
type StringValue string

func (s StringValue) String() string { return string(s) }
func (s StringValue) Truth() bool    { return len(string(s)) > 0 }

// ListValue wraps a list of values.
type ListValue []Value

func (l ListValue) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}
func (l ListValue) Truth() bool { return len(l) > 0 }

// DictValue wraps a string-keyed dictionary of values.
type DictValue map[string]Value

func (d DictValue) String() string { return "{...}" }
func (d DictValue) Truth() bool    { return len(d) > 0 }

// SortedKeys returns the dictionary keys in ascending order. Iteration over
// a dictionary always follows this order.
func (d DictValue) SortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Context maps variable names to values. The engine never writes to a
// caller's Context.
type Context map[string]Value

// NewContextFromAny converts a map[string]any into a Value-based Context.
// It recursively converts nested maps/slices into DictValue/ListValue.
func NewContextFromAny(m map[string]any) Context {
	ctx := Context{}
	for k, v := range m {
		ctx[k] = FromGo(v)
	}
	return ctx
}

// FromGo converts a Go value to a Value.
func FromGo(v any) Value {
	if v == nil {
		return NoneValue{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int8:
		return IntValue(int64(t))
	case int16:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case uint:
		return IntValue(int64(t))
	case uint8:
		return IntValue(int64(t))
	case uint16:
		return IntValue(int64(t))
	case uint32:
		return IntValue(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return FloatValue(float64(t))
		}
		return IntValue(int64(t))
	case float32:
		return FloatValue(float64(t))
	case float64:
		return FloatValue(t)
	case []byte:
		return StringValue(string(t))
	case func(args ...any) (any, error):
		return CallableValue{Fn: func(_ *Scope, args []Value) (Value, error) {
			in := make([]any, len(args))
			for i, a := range args {
				in[i] = ToGo(a)
			}
			out, err := t(in...)
			if err != nil {
				return nil, err
			}
			return FromGo(out), nil
		}}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make(ListValue, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Map:
		out := DictValue{}
		it := rv.MapRange()
		for it.Next() {
			out[fmt.Sprint(it.Key().Interface())] = FromGo(it.Value().Interface())
		}
		return out
	case reflect.Struct:
		out := DictValue{}
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			if !rt.Field(i).IsExported() {
				continue
			}
			out[rt.Field(i).Name] = FromGo(rv.Field(i).Interface())
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NoneValue{}
		}
		return FromGo(rv.Elem().Interface())
	}
	// Fallback: string formatting
	return StringValue(fmt.Sprintf("%v", v))
}

// ToGo converts a Value back into plain Go data (string, bool, int64,
// float64, []any, map[string]any, nil). Callables and host values become
// their string form.
func ToGo(v Value) any {
	switch t := v.(type) {
	case nil, NoneValue:
		return nil
	case StringValue:
		return string(t)
	case IntValue:
		return int64(t)
	case FloatValue:
		return float64(t)
	case BoolValue:
		return bool(t)
	case ListValue:
		out := make([]any, 0, len(t))
		for _, it := range t {
			out = append(out, ToGo(it))
		}
		return out
	case DictValue:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = ToGo(vv)
		}
		return out
	default:
		return v.String()
	}
}

// Entry is one step of an iteration: Key is the positional index (or the
// dictionary key) and Val the element.
type Entry struct {
	Key Value
	Val Value
}

// Entries enumerates an iterable value in order. Lists and strings yield
// positional indices; dictionaries yield their keys in sorted order. None
// iterates as empty.
func Entries(v Value) ([]Entry, error) {
	switch t := v.(type) {
	case nil, NoneValue:
		return nil, nil
	case ListValue:
		out := make([]Entry, len(t))
		for i, it := range t {
			out[i] = Entry{Key: IntValue(i), Val: it}
		}
		return out, nil
	case StringValue:
		s := string(t)
		var out []Entry
		for i := 0; len(s) > 0; i++ {
			r, size := utf8.DecodeRuneInString(s)
			s = s[size:]
			out = append(out, Entry{Key: IntValue(i), Val: StringValue(string(r))})
		}
		return out, nil
	case DictValue:
		keys := t.SortedKeys()
		out := make([]Entry, len(keys))
		for i, k := range keys {
			out[i] = Entry{Key: StringValue(k), Val: t[k]}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s is not iterable", TypeName(v))
}

// TypeName returns a short, user-facing name for the dynamic type of v.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, NoneValue:
		return "null"
	case BoolValue:
		return "bool"
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StringValue:
		return "string"
	case ListValue:
		return "list"
	case DictValue:
		return "dict"
	case CallableValue:
		return "function"
	}
	return fmt.Sprintf("%T", v)
}
