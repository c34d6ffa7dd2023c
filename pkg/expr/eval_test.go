package expr

import (
	"errors"
	"strings"
	"testing"
)

func evalHelper(t *testing.T, src string, ctx Context) (Value, error) {
	t.Helper()
	return NewInterpreter().Eval(src, NewScope(ctx))
}

func TestEvalLiteralsAndArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"7 / 2", "3.5"},
		{"8 / 2", "4"},
		{"7 % 3", "1"},
		{"-4 + 1", "-3"},
		{"1.5 + 1.5", "3"},
		{"'a' + 1", "a1"},
		{`"x\ty"`, "x\ty"},
		{"[1, 2, 3]", "1,2,3"},
		{"[1, 2] + [3]", "1,2,3"},
		{"{a: 1}", "{...}"},
		{"null", ""},
		{"undefined", ""},
		{"true", "true"},
		{"false == true", "false"},
		{"1 == 1.0", "true"},
		{"'a' < 'b'", "true"},
		{"2 >= 3", "false"},
		{"!0", "true"},
		{"1 ? 'y' : 'n'", "y"},
		{"0 ? 'y' : 'n'", "n"},
		{"0 || 'fallback'", "fallback"},
		{"1 && 'second'", "second"},
		{"null ?? 'dflt'", "dflt"},
		{"0 ?? 'dflt'", "0"},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			v, err := evalHelper(t, tc.expr, Context{})
			if err != nil {
				t.Fatalf("eval %q: %v", tc.expr, err)
			}
			if got := v.String(); got != tc.want {
				t.Fatalf("eval %q: got %q, want %q", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvalMemberIndexAndCalls(t *testing.T) {
	ctx := NewContextFromAny(map[string]any{
		"user":  map[string]any{"name": "ada", "langs": []string{"go", "c"}},
		"items": []int{10, 20, 30},
	})
	cases := []struct {
		expr string
		want string
	}{
		{"user.name", "ada"},
		{"user['name']", "ada"},
		{"user.langs[1]", "c"},
		{"items[-1]", "30"},
		{"items[5]", ""},
		{"items.length", "3"},
		{"user.missing", ""},
		{"upper(user.name)", "ADA"},
		{"join(items, '-')", "10-20-30"},
		{"len(user.langs)", "2"},
		{"range(3)", "0,1,2"},
		{"default(user.missing, 'n/a')", "n/a"},
		{"contains(items, 20)", "true"},
		{"keys({b: 1, a: 2})", "a,b"},
		{"split('a b  c')", "a,b,c"},
		{"int('42') + 1", "43"},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			v, err := evalHelper(t, tc.expr, ctx)
			if err != nil {
				t.Fatalf("eval %q: %v", tc.expr, err)
			}
			if got := v.String(); got != tc.want {
				t.Fatalf("eval %q: got %q, want %q", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"nope", `"nope" is not defined`},
		{"1 +", "unexpected end of expression"},
		{"'open", "unterminated string literal"},
		{"1 / 0", "division by zero"},
		{"null.x", "cannot read property"},
		{"user()", "is not a function"},
		{"upper()", "upper: takes 1 argument(s), got 0"},
		{"[1] - 1", "unsupported operand types"},
		{"1 < 'a'", "cannot compare"},
		{"a b", "unexpected identifier"},
	}
	ctx := Context{"user": StringValue("x")}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			_, err := evalHelper(t, tc.expr, ctx)
			if err == nil {
				t.Fatalf("eval %q: expected error", tc.expr)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("eval %q: error %q does not contain %q", tc.expr, err, tc.want)
			}
		})
	}
}

func TestUndefinedSuggestions(t *testing.T) {
	ctx := Context{"username": StringValue("ada"), "items": ListValue{}}
	_, err := evalHelper(t, "usrname", ctx)
	var undef *UndefinedError
	if !errors.As(err, &undef) {
		t.Fatalf("expected UndefinedError, got %v", err)
	}
	if len(undef.Suggestions) == 0 || undef.Suggestions[0] != "username" {
		t.Fatalf("suggestions = %v, want username first", undef.Suggestions)
	}
	if !strings.Contains(err.Error(), `did you mean "username"`) {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestCallableReceivesCallSiteScope(t *testing.T) {
	whoami := CallableValue{Name: "whoami", Fn: func(s *Scope, _ []Value) (Value, error) {
		v, _ := s.Lookup("who")
		return v, nil
	}}
	base := NewScope(Context{"who": StringValue("base"), "whoami": whoami})
	inner := base.With("who", StringValue("inner"))

	in := NewInterpreter()
	v, err := in.Eval("whoami()", inner)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.String() != "inner" {
		t.Fatalf("got %q, want inner", v.String())
	}
}

func TestScopeOverlaysDoNotTouchParent(t *testing.T) {
	base := Context{"x": IntValue(1)}
	root := NewScope(base)
	child := root.With("x", IntValue(2)).With("y", IntValue(3))

	if v, _ := child.Lookup("x"); v.String() != "2" {
		t.Fatalf("child x = %v", v)
	}
	if _, ok := root.Lookup("y"); ok {
		t.Fatalf("y leaked into the root scope")
	}
	if len(base) != 1 || base["x"].String() != "1" {
		t.Fatalf("base context was modified: %v", base)
	}
	flat := child.Flatten()
	if flat["x"].String() != "2" || flat["y"].String() != "3" {
		t.Fatalf("flatten = %v", flat)
	}
	if got := strings.Join(child.Names(), ","); got != "x,y" {
		t.Fatalf("names = %q", got)
	}
}

func TestEntries(t *testing.T) {
	entries, err := Entries(DictValue{"b": IntValue(2), "a": IntValue(1)})
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Key.String() != "a" || entries[1].Val.String() != "2" {
		t.Fatalf("dict entries not in key order: %#v", entries)
	}
	entries, err = Entries(StringValue("hé"))
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 || entries[1].Val.String() != "é" {
		t.Fatalf("string entries: %#v", entries)
	}
	if _, err := Entries(IntValue(3)); err == nil {
		t.Fatalf("expected int to be rejected as iterable")
	}
}

func TestFloatFormatting(t *testing.T) {
	cases := map[FloatValue]string{
		3:      "3",
		0.1:    "0.1",
		-2.5:   "-2.5",
		1e21:   "1e+21",
		1.0e-7: "1e-07",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Errorf("FloatValue(%v).String() = %q, want %q", float64(in), got, want)
		}
	}
}
