package expr

import "sort"

// Scope is one frame in a chain of variable bindings. The base frame holds
// the caller's Context; every child frame is an overlay that shadows its
// parents. Frames are never written after creation, so a Scope can be
// shared freely and discarding a child leaves the parent untouched.
type Scope struct {
	parent *Scope
	vars   Context
}

// NewScope returns a root scope over base. base is read, never written.
func NewScope(base Context) *Scope {
	return &Scope{vars: base}
}

// Child returns an overlay scope holding vars on top of s.
func (s *Scope) Child(vars Context) *Scope {
	return &Scope{parent: s, vars: vars}
}

// With returns an overlay scope binding a single name.
func (s *Scope) With(name string, v Value) *Scope {
	return s.Child(Context{name: v})
}

// Lookup resolves name from the innermost frame outwards.
func (s *Scope) Lookup(name string) (Value, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Flatten collapses the chain into a single Context, inner frames winning.
// The result is a fresh map.
func (s *Scope) Flatten() Context {
	var frames []*Scope
	for f := s; f != nil; f = f.parent {
		frames = append(frames, f)
	}
	out := Context{}
	for i := len(frames) - 1; i >= 0; i-- {
		for k, v := range frames[i].vars {
			out[k] = v
		}
	}
	return out
}

// Names returns every bound name, sorted.
func (s *Scope) Names() []string {
	seen := map[string]struct{}{}
	for f := s; f != nil; f = f.parent {
		for k := range f.vars {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
