package template

import (
	"bytes"
	"errors"
	"fmt"
)

type Visitor interface {
	Visit(f *Fragment) error
}

// VisitorFunc adapts a function to a Visitor.
type VisitorFunc func(f *Fragment) error

func (fn VisitorFunc) Visit(f *Fragment) error { return fn(f) }

// SkipChildren returned from Visit skips the fragment's children.
var SkipChildren = errors.New("skip children")

// Walk visits frags and their children depth first, in source order.
func Walk(v Visitor, frags []*Fragment) error {
	for _, f := range frags {
		err := v.Visit(f)
		if errors.Is(err, SkipChildren) {
			continue
		}
		if err != nil {
			return err
		}
		if err := Walk(v, f.Children); err != nil {
			return err
		}
	}
	return nil
}

// Pretty returns a line-oriented rendering of the fragment tree.
func Pretty(t *Template) string {
	var buf bytes.Buffer
	name := t.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(&buf, "Template(%s)\n", name)
	for _, f := range t.root {
		ppFragment(&buf, 2, f)
	}
	return buf.String()
}

func ppFragment(buf *bytes.Buffer, indent int, f *Fragment) {
	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}
	switch f.Kind {
	case KindText:
		fmt.Fprintf(buf, "Text(%q)", f.Raw)
	case KindExpression:
		fmt.Fprintf(buf, "Expression(%q)", f.Expr)
	case KindFor:
		fmt.Fprintf(buf, "For(%s %s %q)", f.For.Var, f.For.Mode, f.For.Iterable)
	case KindIf:
		fmt.Fprintf(buf, "If(%q)", f.If.Cond)
	default:
		fmt.Fprintf(buf, "%s(%q)", f.Kind, f.Raw)
	}
	fmt.Fprintf(buf, " @%d\n", f.Offset)
	for _, c := range f.Children {
		ppFragment(buf, indent+2, c)
	}
}
