package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Func adapts a plain function to a CallableValue.
func Func(name string, fn func(args []Value) (Value, error)) CallableValue {
	return CallableValue{Name: name, Fn: func(_ *Scope, args []Value) (Value, error) { return fn(args) }}
}

func arity(args []Value, lo, hi int) error {
	if len(args) >= lo && (hi < 0 || len(args) <= hi) {
		return nil
	}
	switch {
	case lo == hi:
		return fmt.Errorf("takes %d argument(s), got %d", lo, len(args))
	case hi < 0:
		return fmt.Errorf("takes at least %d argument(s), got %d", lo, len(args))
	}
	return fmt.Errorf("takes %d to %d arguments, got %d", lo, hi, len(args))
}

// DefaultFunctions provides the utility functions every expression can call.
func DefaultFunctions() Context {
	fns := []CallableValue{
		Func("upper", func(args []Value) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			return StringValue(strings.ToUpper(args[0].String())), nil
		}),
		Func("lower", func(args []Value) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			return StringValue(strings.ToLower(args[0].String())), nil
		}),
		Func("trim", func(args []Value) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			return StringValue(strings.TrimSpace(args[0].String())), nil
		}),
		Func("str", func(args []Value) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			return StringValue(args[0].String()), nil
		}),
		Func("default", func(args []Value) (Value, error) {
			if err := arity(args, 2, 2); err != nil {
				return nil, err
			}
			if args[0].Truth() {
				return args[0], nil
			}
			return args[1], nil
		}),
		Func("join", func(args []Value) (Value, error) {
			if err := arity(args, 1, 2); err != nil {
				return nil, err
			}
			sep := ","
			if len(args) > 1 {
				sep = args[1].String()
			}
			entries, err := Entries(args[0])
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(entries))
			for i, e := range entries {
				parts[i] = e.Val.String()
			}
			return StringValue(strings.Join(parts, sep)), nil
		}),
		Func("len", func(args []Value) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			switch t := args[0].(type) {
			case StringValue:
				return IntValue(len([]rune(string(t)))), nil
			case ListValue:
				return IntValue(len(t)), nil
			case DictValue:
				return IntValue(len(t)), nil
			case NoneValue:
				return IntValue(0), nil
			}
			return nil, fmt.Errorf("%s has no length", TypeName(args[0]))
		}),
		Func("range", func(args []Value) (Value, error) {
			if err := arity(args, 1, 3); err != nil {
				return nil, err
			}
			bounds := make([]int64, len(args))
			for i, a := range args {
				n, ok := a.(IntValue)
				if !ok {
					return nil, fmt.Errorf("argument %d must be an int, got %s", i+1, TypeName(a))
				}
				bounds[i] = int64(n)
			}
			start, stop, step := int64(0), bounds[0], int64(1)
			if len(bounds) > 1 {
				start, stop = bounds[0], bounds[1]
			}
			if len(bounds) > 2 {
				step = bounds[2]
			}
			if step == 0 {
				return nil, fmt.Errorf("step must not be zero")
			}
			var out ListValue
			for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
				out = append(out, IntValue(i))
			}
			return out, nil
		}),
		Func("int", func(args []Value) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			switch t := args[0].(type) {
			case IntValue:
				return t, nil
			case FloatValue:
				return IntValue(int64(t)), nil
			case BoolValue:
				if t {
					return IntValue(1), nil
				}
				return IntValue(0), nil
			case StringValue:
				n, err := strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
				if err != nil {
					return nil, fmt.Errorf("cannot convert %q to int", string(t))
				}
				return IntValue(n), nil
			}
			return nil, fmt.Errorf("cannot convert %s to int", TypeName(args[0]))
		}),
		Func("keys", func(args []Value) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			d, ok := args[0].(DictValue)
			if !ok {
				return nil, fmt.Errorf("expected dict, got %s", TypeName(args[0]))
			}
			out := ListValue{}
			for _, k := range d.SortedKeys() {
				out = append(out, StringValue(k))
			}
			return out, nil
		}),
		Func("values", func(args []Value) (Value, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			d, ok := args[0].(DictValue)
			if !ok {
				return nil, fmt.Errorf("expected dict, got %s", TypeName(args[0]))
			}
			out := ListValue{}
			for _, k := range d.SortedKeys() {
				out = append(out, d[k])
			}
			return out, nil
		}),
		Func("contains", func(args []Value) (Value, error) {
			if err := arity(args, 2, 2); err != nil {
				return nil, err
			}
			switch t := args[0].(type) {
			case StringValue:
				return BoolValue(strings.Contains(string(t), args[1].String())), nil
			case ListValue:
				for _, it := range t {
					if Equal(it, args[1]) {
						return BoolValue(true), nil
					}
				}
				return BoolValue(false), nil
			case DictValue:
				_, ok := t[args[1].String()]
				return BoolValue(ok), nil
			}
			return nil, fmt.Errorf("cannot search in %s", TypeName(args[0]))
		}),
		Func("split", func(args []Value) (Value, error) {
			if err := arity(args, 1, 2); err != nil {
				return nil, err
			}
			var parts []string
			if len(args) == 1 {
				parts = strings.Fields(args[0].String())
			} else {
				parts = strings.Split(args[0].String(), args[1].String())
			}
			out := make(ListValue, len(parts))
			for i, p := range parts {
				out[i] = StringValue(p)
			}
			return out, nil
		}),
		Func("replace", func(args []Value) (Value, error) {
			if err := arity(args, 3, 3); err != nil {
				return nil, err
			}
			return StringValue(strings.ReplaceAll(args[0].String(), args[1].String(), args[2].String())), nil
		}),
	}
	ctx := make(Context, len(fns))
	for _, fn := range fns {
		ctx[fn.Name] = fn
	}
	return ctx
}
