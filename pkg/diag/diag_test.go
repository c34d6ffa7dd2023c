package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/neurodesk/ste/pkg/expr"
	"github.com/neurodesk/ste/pkg/template"
)

func TestLocate(t *testing.T) {
	src := "first\n\tsé $x$\nlast"
	cases := []struct {
		offset int
		want   Location
	}{
		{0, Location{Line: 1, Col: 1, Text: "first", Prefix: ""}},
		{11, Location{Line: 2, Col: 5, Text: "\tsé $x$", Prefix: "\tsé "}},
		{len(src), Location{Line: 3, Col: 5, Text: "last", Prefix: "last"}},
		{-3, Location{Line: 1, Col: 1, Text: "first", Prefix: ""}},
	}
	for _, tc := range cases {
		if d := cmp.Diff(tc.want, Locate(src, tc.offset)); d != "" {
			t.Errorf("Locate(%d) (-want +got):\n%s", tc.offset, d)
		}
	}
}

func TestCaretKeepsTabs(t *testing.T) {
	loc := Location{Prefix: "\tab\t"}
	if got := loc.Caret(); got != "\t  \t^" {
		t.Fatalf("caret = %q", got)
	}
}

func TestFormat(t *testing.T) {
	src := "line one\n  $if x$ never closed"
	_, err := template.Compile(src)
	want := "page.ste:2:3: " + err.Error() + "\n    $if x$ never closed\n    ^"
	if got := Format("page.ste", src, err); got != want {
		t.Fatalf("Format:\n%s\nwant:\n%s", got, want)
	}

	src = "a\nb $nope$"
	_, err = template.Render(src, expr.Context{})
	got := Format("", src, fmt.Errorf("rendering: %w", err))
	wantPrefix := "<template>:2:3: rendering: "
	if len(got) < len(wantPrefix) || got[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("Format = %q", got)
	}

	if got := Format("x.ste", "", errors.New("boom")); got != "x.ste: boom" {
		t.Fatalf("Format without position = %q", got)
	}
}
