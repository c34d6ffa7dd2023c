package starlark

import (
	"strings"
	"testing"

	"go.starlark.net/starlark"

	"github.com/neurodesk/ste/pkg/expr"
	"github.com/neurodesk/ste/pkg/loader"
	"github.com/neurodesk/ste/pkg/template"
)

func TestConvertToStarlark(t *testing.T) {
	tests := []struct {
		name     string
		input    expr.Value
		expected starlark.Value
	}{
		{"string value", expr.StringValue("hello"), starlark.String("hello")},
		{"int value", expr.IntValue(42), starlark.MakeInt64(42)},
		{"float value", expr.FloatValue(3.14), starlark.Float(3.14)},
		{"bool value true", expr.BoolValue(true), starlark.Bool(true)},
		{"none value", expr.NoneValue{}, starlark.None},
		{"nil value", nil, starlark.None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToStarlark(tt.input, nil)
			if result.String() != tt.expected.String() {
				t.Errorf("ConvertToStarlark() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestConvertFromStarlark(t *testing.T) {
	tests := []struct {
		name     string
		input    starlark.Value
		expected string
	}{
		{"string value", starlark.String("hello"), "hello"},
		{"int value", starlark.MakeInt64(42), "42"},
		{"float value", starlark.Float(3.14), "3.14"},
		{"integral float", starlark.Float(2), "2"},
		{"bool value false", starlark.Bool(false), "false"},
		{"none value", starlark.None, ""},
		{"tuple", starlark.Tuple{starlark.MakeInt(1), starlark.String("a")}, "1,a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertFromStarlark(tt.input)
			if result.String() != tt.expected {
				t.Errorf("ConvertFromStarlark() = %v, want %v", result.String(), tt.expected)
			}
		})
	}
}

func TestDictConversion(t *testing.T) {
	d := expr.DictValue{
		"key1": expr.StringValue("value1"),
		"key2": expr.ListValue{expr.IntValue(1), expr.IntValue(2)},
	}

	sd, ok := ConvertToStarlark(d, nil).(*starlark.Dict)
	if !ok {
		t.Fatalf("Expected starlark.Dict")
	}
	if sd.Len() != 2 {
		t.Errorf("Expected dict length 2, got %d", sd.Len())
	}

	back, ok := ConvertFromStarlark(sd).(expr.DictValue)
	if !ok {
		t.Fatalf("Expected expr.DictValue")
	}
	if back["key1"].String() != "value1" || back["key2"].String() != "1,2" {
		t.Errorf("round trip lost data: %v", back)
	}
}

func TestEvaluatorBasic(t *testing.T) {
	ev := NewEvaluator()
	cases := []struct {
		src  string
		want string
	}{
		{"2 + 3", "5"},
		{"7 / 2", "3.5"},
		{"true", "true"},
		{"null", ""},
		{"false == true", "false"},
		{"upper('abc')", "ABC"},
		{"join([1, 2], '-')", "1-2"},
		{"len('abc')", "3"},
		{"  ", ""},
	}
	for _, tc := range cases {
		v, err := ev.Eval(tc.src, nil)
		if err != nil {
			t.Fatalf("Eval(%q): %v", tc.src, err)
		}
		if v.String() != tc.want {
			t.Errorf("Eval(%q) = %q, want %q", tc.src, v.String(), tc.want)
		}
	}
}

func TestEvaluatorScope(t *testing.T) {
	ev := NewEvaluator()
	ev.SetGlobal("greeting", expr.StringValue("hello"))

	s := expr.NewScope(expr.Context{"name": expr.StringValue("ada")}).With("greeting", expr.StringValue("hi"))
	v, err := ev.Eval("greeting + ' ' + name", s)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.String() != "hi ada" {
		t.Errorf("got %q, want scope binding to shadow the global", v.String())
	}

	_, err = ev.Eval("missing", s)
	if err == nil || !strings.Contains(err.Error(), "starlark") {
		t.Fatalf("expected starlark error, got %v", err)
	}
}

func TestEvaluatorPrelude(t *testing.T) {
	ev := NewEvaluator()
	_, err := ev.ExecString(`
def slug(s):
    return s.lower().replace(" ", "-")

site = "Docs"
`)
	if err != nil {
		t.Fatalf("ExecString: %v", err)
	}
	if v, ok := ev.GetGlobal("site"); !ok || v.String() != "Docs" {
		t.Fatalf("GetGlobal(site) = %v, %v", v, ok)
	}
	v, err := ev.Eval("slug(title)", expr.NewScope(expr.Context{"title": expr.StringValue("Hello World")}))
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.String() != "hello-world" {
		t.Errorf("got %q", v.String())
	}
}

func TestTemplatesWithStarlark(t *testing.T) {
	e := template.New(
		template.WithEvaluator(NewEvaluator()),
		template.WithLoader(loader.MemoryLoader{"row.ste": "<$r$>"}),
	)
	cases := []struct {
		src  string
		want string
	}{
		{"$if true$bar$fi$", "bar"},
		{"$if false$bar$fi$", ""},
		{"$for i of [1,2,3]$$i$,$efor$", "1,2,3,"},
		{"$for i in [1,2,3]$$i$,$efor$", "0,1,2,"},
		{"$for r of rows$$include('row.ste')$$efor$", "<a><b>"},
		{"$for k in d$$k$=$d[k]$;$efor$", "x=1;y=2;"},
		{"$ {'a': 1}.get('a') $", "1"},
		{"$for i of range(3)$$i$,$efor$", "0,1,2,"},
		{"$for i in range(1, 3)$$i$$efor$", "01"},
		{"$str(None)$|$null$|$str(1)$", "||1"},
	}
	ctx := expr.NewContextFromAny(map[string]any{
		"rows": []string{"a", "b"},
		"d":    map[string]int{"y": 2, "x": 1},
	})
	for _, tc := range cases {
		got, err := e.RenderString(tc.src, ctx)
		if err != nil {
			t.Fatalf("render %q: %v", tc.src, err)
		}
		if got != tc.want {
			t.Errorf("render %q = %q, want %q", tc.src, got, tc.want)
		}
	}
}
