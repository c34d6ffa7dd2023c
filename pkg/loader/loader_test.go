package loader

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestMemoryLoader(t *testing.T) {
	m := MemoryLoader{"partials/head.ste": "<head>"}
	got, err := m.Load("partials/./head.ste")
	if err != nil || got != "<head>" {
		t.Fatalf("Load = %q, %v", got, err)
	}
	_, err = m.Load("missing.ste")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Name != "missing.ste" {
		t.Fatalf("expected NotFoundError for missing.ste, got %v", err)
	}
}

func TestFSLoader(t *testing.T) {
	l := FSLoader{FS: fstest.MapFS{
		"a/b.ste": {Data: []byte("b")},
	}}
	if got, err := l.Load("a/b.ste"); err != nil || got != "b" {
		t.Fatalf("Load = %q, %v", got, err)
	}
	if _, err := l.Load("../etc/passwd"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected invalid name error, got %v", err)
	}
	if _, err := l.Load("a/c.ste"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChain(t *testing.T) {
	c := Chain{MemoryLoader{"x": "first"}, MemoryLoader{"x": "second", "y": "y"}}
	if got, _ := c.Load("x"); got != "first" {
		t.Fatalf("got %q, want first", got)
	}
	if got, _ := c.Load("y"); got != "y" {
		t.Fatalf("got %q, want y", got)
	}
	if _, err := c.Load("z"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	cases := []struct{ from, name, want string }{
		{"", "a.ste", "a.ste"},
		{"pages/index.ste", "header.ste", "pages/header.ste"},
		{"pages/index.ste", "../shared/x.ste", "shared/x.ste"},
		{"pages/index.ste", "/root.ste", "root.ste"},
		{"index.ste", "../up.ste", "../up.ste"},
	}
	for _, tc := range cases {
		if got := Resolve(tc.from, tc.name); got != tc.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tc.from, tc.name, got, tc.want)
		}
	}
}
