package template

import (
	"fmt"

	"github.com/neurodesk/ste/pkg/expr"
	"github.com/neurodesk/ste/pkg/loader"
)

// executor runs one compiled template against one scope chain. It never
// writes to the tree; every result is a new Text fragment.
type executor struct {
	engine *Engine
	tmpl   *Template
	// depth counts the includes between the top-level render and tmpl.
	depth int
}

func (x *executor) execute(frags []*Fragment, s *expr.Scope, out []*Fragment) ([]*Fragment, error) {
	for _, f := range frags {
		var err error
		switch f.Kind {
		case KindText:
			out = append(out, f)
		case KindExpression:
			var v expr.Value
			v, err = x.eval(f.Expr, f, s)
			if err == nil {
				out = append(out, &Fragment{Kind: KindText, Raw: v.String(), Offset: f.Offset, ID: f.ID, ParentID: f.ParentID})
			}
		case KindFor:
			out, err = x.loop(f, s, out)
		case KindIf:
			var v expr.Value
			v, err = x.eval(f.If.Cond, f, s)
			if err == nil && v.Truth() {
				out, err = x.execute(f.Children, s, out)
			}
		default:
			err = internalf("%s fragment at offset %d reached execution", f.Kind, f.Offset)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// loop binds the loop variable in a fresh overlay per iteration. Once the
// loop ends the overlays are dropped, so the variable is unbound again
// and any outer binding of the same name is visible unchanged.
func (x *executor) loop(f *Fragment, s *expr.Scope, out []*Fragment) ([]*Fragment, error) {
	v, err := x.eval(f.For.Iterable, f, s)
	if err != nil {
		return nil, err
	}
	entries, err := expr.Entries(v)
	if err != nil {
		return nil, x.evalErr(f.For.Iterable, f, err)
	}
	for _, e := range entries {
		bound := e.Key
		if f.For.Mode == ValuesOf {
			bound = e.Val
		}
		out, err = x.execute(f.Children, s.With(f.For.Var, bound), out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (x *executor) eval(src string, f *Fragment, s *expr.Scope) (expr.Value, error) {
	v, err := x.engine.evaluator.Eval(src, s)
	if err != nil {
		return nil, x.evalErr(src, f, err)
	}
	if v == nil {
		return expr.NoneValue{}, nil
	}
	return v, nil
}

func (x *executor) evalErr(src string, f *Fragment, err error) error {
	return &EvalError{Template: x.tmpl.Name, Expr: src, Offset: f.Offset, Err: err}
}

// utilities builds the overlay of callables every scope of this execution
// sees on top of the caller's context.
func (x *executor) utilities() expr.Context {
	u := make(expr.Context, len(x.engine.functions)+1)
	for k, v := range x.engine.functions {
		u[k] = v
	}
	if x.engine.loader != nil {
		u["include"] = expr.CallableValue{Name: "include", Fn: x.include}
	}
	return u
}

// include renders another template against the caller's scope, so loop
// variables bound around the call are visible to it.
func (x *executor) include(s *expr.Scope, args []expr.Value) (expr.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("takes 1 argument(s), got %d", len(args))
	}
	if x.depth >= x.engine.maxIncludeDepth {
		return nil, fmt.Errorf("include depth limit of %d exceeded", x.engine.maxIncludeDepth)
	}
	name := loader.Resolve(x.tmpl.Name, args[0].String())
	src, err := x.engine.loader.Load(name)
	if err != nil {
		return nil, err
	}
	t, err := x.engine.CompileNamed(name, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	x.engine.logger.Debug("include", "from", x.tmpl.Name, "template", name, "depth", x.depth+1)
	child := &executor{engine: x.engine, tmpl: t, depth: x.depth + 1}
	out, err := child.run(s.Child(child.utilities()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return expr.StringValue(out), nil
}

// run executes the whole template and assembles the output.
func (x *executor) run(s *expr.Scope) (string, error) {
	frags, err := x.execute(x.tmpl.root, s, nil)
	if err != nil {
		return "", err
	}
	return construct(frags)
}
