package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// UndefinedError is returned when an identifier is bound neither in the
// scope nor among the registered functions.
type UndefinedError struct {
	Name        string
	Pos         int
	Suggestions []string
}

func (e *UndefinedError) Error() string {
	msg := fmt.Sprintf("%q is not defined", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(quoteAll(e.Suggestions), ", "))
	}
	return msg
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}

// Interpreter evaluates the dedicated expression grammar against a Scope.
// It holds no per-evaluation state and is safe for concurrent use.
type Interpreter struct {
	Functions Context
}

// NewInterpreter returns an interpreter with the default functions
// registered.
func NewInterpreter() *Interpreter {
	return &Interpreter{Functions: DefaultFunctions()}
}

// Eval parses and evaluates src.
func (in *Interpreter) Eval(src string, s *Scope) (Value, error) {
	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return in.EvalNode(n, s)
}

// EvalNode evaluates an already parsed expression.
func (in *Interpreter) EvalNode(n Node, s *Scope) (Value, error) {
	switch t := n.(type) {
	case *Literal:
		return t.Value, nil
	case *Ident:
		return in.resolve(t, s)
	case *ListLit:
		out := make(ListValue, 0, len(t.Items))
		for _, it := range t.Items {
			v, err := in.EvalNode(it, s)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *MapLit:
		out := make(DictValue, len(t.Keys))
		for i, k := range t.Keys {
			v, err := in.EvalNode(t.Values[i], s)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *Member:
		obj, err := in.EvalNode(t.Object, s)
		if err != nil {
			return nil, err
		}
		return member(obj, t.Name)
	case *Index:
		obj, err := in.EvalNode(t.Object, s)
		if err != nil {
			return nil, err
		}
		idx, err := in.EvalNode(t.Index, s)
		if err != nil {
			return nil, err
		}
		return index(obj, idx)
	case *Call:
		return in.call(t, s)
	case *Unary:
		v, err := in.EvalNode(t.Operand, s)
		if err != nil {
			return nil, err
		}
		return unaryOp(t.Op, v)
	case *Binary:
		a, err := in.EvalNode(t.Left, s)
		if err != nil {
			return nil, err
		}
		b, err := in.EvalNode(t.Right, s)
		if err != nil {
			return nil, err
		}
		return binaryOp(t.Op, a, b)
	case *Logical:
		a, err := in.EvalNode(t.Left, s)
		if err != nil {
			return nil, err
		}
		switch t.Op {
		case "&&":
			if !a.Truth() {
				return a, nil
			}
		case "||":
			if a.Truth() {
				return a, nil
			}
		case "??":
			if _, none := a.(NoneValue); !none {
				return a, nil
			}
		}
		return in.EvalNode(t.Right, s)
	case *Conditional:
		c, err := in.EvalNode(t.Cond, s)
		if err != nil {
			return nil, err
		}
		if c.Truth() {
			return in.EvalNode(t.Then, s)
		}
		return in.EvalNode(t.Else, s)
	}
	return nil, fmt.Errorf("unhandled expression node %T", n)
}

func (in *Interpreter) resolve(id *Ident, s *Scope) (Value, error) {
	if v, ok := s.Lookup(id.Name); ok {
		if v == nil {
			return NoneValue{}, nil
		}
		return v, nil
	}
	if v, ok := in.Functions[id.Name]; ok {
		return v, nil
	}
	candidates := s.Names()
	for name := range in.Functions {
		candidates = append(candidates, name)
	}
	return nil, &UndefinedError{Name: id.Name, Pos: id.At, Suggestions: Suggest(id.Name, candidates)}
}

func (in *Interpreter) call(c *Call, s *Scope) (Value, error) {
	callee, err := in.EvalNode(c.Callee, s)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(CallableValue)
	if !ok {
		return nil, fmt.Errorf("%s is not a function", describe(c.Callee))
	}
	args := make([]Value, 0, len(c.Args))
	for _, a := range c.Args {
		v, err := in.EvalNode(a, s)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	out, err := fn.Fn(s, args)
	if err != nil {
		name := fn.Name
		if name == "" {
			name = describe(c.Callee)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if out == nil {
		return NoneValue{}, nil
	}
	return out, nil
}

func describe(n Node) string {
	switch t := n.(type) {
	case *Ident:
		return t.Name
	case *Member:
		return describe(t.Object) + "." + t.Name
	}
	return "expression"
}

func member(obj Value, name string) (Value, error) {
	switch t := obj.(type) {
	case nil, NoneValue:
		return nil, fmt.Errorf("cannot read property %q of null", name)
	case DictValue:
		if v, ok := t[name]; ok {
			return v, nil
		}
		return NoneValue{}, nil
	case LookupHook:
		if v, ok := t.OnLookup(name); ok {
			return v, nil
		}
		return NoneValue{}, nil
	case ListValue:
		if name == "length" {
			return IntValue(len(t)), nil
		}
	case StringValue:
		if name == "length" {
			return IntValue(len([]rune(string(t)))), nil
		}
	}
	return NoneValue{}, nil
}

func index(obj, idx Value) (Value, error) {
	switch t := obj.(type) {
	case nil, NoneValue:
		return nil, fmt.Errorf("cannot index null with %s", idx.String())
	case DictValue:
		if v, ok := t[idx.String()]; ok {
			return v, nil
		}
		return NoneValue{}, nil
	case LookupHook:
		if v, ok := t.OnLookup(idx.String()); ok {
			return v, nil
		}
		return NoneValue{}, nil
	case ListValue:
		i, err := toIndex(idx)
		if err != nil {
			return nil, err
		}
		if i < 0 {
			i += len(t)
		}
		if i < 0 || i >= len(t) {
			return NoneValue{}, nil
		}
		return t[i], nil
	case StringValue:
		i, err := toIndex(idx)
		if err != nil {
			return nil, err
		}
		r := []rune(string(t))
		if i < 0 {
			i += len(r)
		}
		if i < 0 || i >= len(r) {
			return NoneValue{}, nil
		}
		return StringValue(string(r[i])), nil
	}
	return nil, fmt.Errorf("%s is not subscriptable", TypeName(obj))
}

func toIndex(v Value) (int, error) {
	switch t := v.(type) {
	case IntValue:
		return int(t), nil
	case FloatValue:
		if float64(t) == float64(int(t)) {
			return int(t), nil
		}
	}
	return 0, fmt.Errorf("invalid index %s (%s)", v.String(), TypeName(v))
}

// Suggest returns up to three candidates that look like a misspelling of
// name: fuzzy subsequence matches first, then small edit distances.
func Suggest(name string, candidates []string) []string {
	const maxSuggestions = 3
	var out []string
	seen := map[string]bool{name: true}
	candidates = append([]string(nil), candidates...)
	sort.Strings(candidates)
	if len(name) >= 3 {
		ranks := fuzzy.RankFindFold(name, candidates)
		sort.Stable(ranks)
		for _, r := range ranks {
			if !seen[r.Target] {
				seen[r.Target] = true
				out = append(out, r.Target)
			}
		}
	}
	type scored struct {
		name string
		dist int
	}
	var near []scored
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		if d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(c)); d <= 2 {
			near = append(near, scored{c, d})
		}
	}
	sort.Slice(near, func(i, j int) bool {
		if near[i].dist != near[j].dist {
			return near[i].dist < near[j].dist
		}
		return near[i].name < near[j].name
	})
	for _, c := range near {
		if !seen[c.name] {
			seen[c.name] = true
			out = append(out, c.name)
		}
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}
