package starlark

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/neurodesk/ste/pkg/expr"
)

// ConvertToStarlark converts a template value to a Starlark value.
// Callables become builtins that run against scope s, so a utility such
// as include sees the bindings of the tag that calls it.
func ConvertToStarlark(val expr.Value, s *expr.Scope) starlark.Value {
	if val == nil {
		return starlark.None
	}

	switch v := val.(type) {
	case expr.StringValue:
		return starlark.String(string(v))
	case expr.IntValue:
		return starlark.MakeInt64(int64(v))
	case expr.FloatValue:
		return starlark.Float(float64(v))
	case expr.BoolValue:
		return starlark.Bool(bool(v))
	case expr.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ConvertToStarlark(item, s)
		}
		return starlark.NewList(items)
	case expr.DictValue:
		dict := starlark.NewDict(len(v))
		for _, key := range v.SortedKeys() {
			_ = dict.SetKey(starlark.String(key), ConvertToStarlark(v[key], s))
		}
		return dict
	case expr.NoneValue:
		return starlark.None
	case expr.CallableValue:
		return wrapCallable(v, s)
	default:
		// Host values without a Starlark shape are exposed as their text.
		return starlark.String(val.String())
	}
}

func wrapCallable(c expr.CallableValue, s *expr.Scope) *starlark.Builtin {
	name := c.Name
	if name == "" {
		name = "function"
	}
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword argument %s", fn.Name(), kwargs[0][0])
		}
		in := make([]expr.Value, len(args))
		for i, a := range args {
			in[i] = ConvertFromStarlark(a)
		}
		out, err := c.Fn(s, in)
		if err != nil {
			return nil, err
		}
		return ConvertToStarlark(out, s), nil
	})
}

// ConvertFromStarlark converts a Starlark value to a template value.
func ConvertFromStarlark(val starlark.Value) expr.Value {
	if val == nil || val == starlark.None {
		return expr.NoneValue{}
	}

	switch v := val.(type) {
	case starlark.String:
		return expr.StringValue(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return expr.IntValue(i)
		}
		// Too large for int64; keep the digits.
		return expr.StringValue(v.String())
	case starlark.Float:
		return expr.FloatValue(float64(v))
	case starlark.Bool:
		return expr.BoolValue(bool(v))
	case *starlark.List:
		items := make(expr.ListValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = ConvertFromStarlark(v.Index(i))
		}
		return items
	case starlark.Tuple:
		items := make(expr.ListValue, len(v))
		for i, it := range v {
			items[i] = ConvertFromStarlark(it)
		}
		return items
	case *starlark.Set:
		var items expr.ListValue
		iter := v.Iterate()
		defer iter.Done()
		var it starlark.Value
		for iter.Next(&it) {
			items = append(items, ConvertFromStarlark(it))
		}
		return items
	case *starlark.Dict:
		dict := make(expr.DictValue)
		for _, item := range v.Items() {
			key := item[0]
			if keyStr, ok := key.(starlark.String); ok {
				dict[string(keyStr)] = ConvertFromStarlark(item[1])
			} else {
				dict[key.String()] = ConvertFromStarlark(item[1])
			}
		}
		return dict
	case starlark.Iterable:
		// range objects and other lazy sequences.
		var items expr.ListValue
		iter := v.Iterate()
		defer iter.Done()
		var it starlark.Value
		for iter.Next(&it) {
			items = append(items, ConvertFromStarlark(it))
		}
		return items
	default:
		return expr.StringValue(val.String())
	}
}
