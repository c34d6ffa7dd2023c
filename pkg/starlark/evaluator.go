// Package starlark evaluates template expressions with the Starlark
// language. Expressions run with no file system or network access, but
// unlike the expr grammar they are a general purpose language: a prelude
// can define functions, and nothing bounds an expression's running time.
package starlark

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.starlark.net/starlark"

	"github.com/neurodesk/ste/pkg/expr"
)

// Evaluator implements template.Evaluator on top of go.starlark.net.
// Configure it (SetGlobal, ExecFile) before rendering; Eval itself is safe
// for concurrent use.
type Evaluator struct {
	mu       sync.RWMutex
	builtins starlark.StringDict
	globals  starlark.StringDict
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator whose predeclared names are the
// Starlark universe, the expr utility functions Starlark lacks, and the
// literals true, false, null and undefined.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		builtins: CreateBuiltins(),
		globals:  make(starlark.StringDict),
		logger:   slog.Default(),
	}
}

// SetLogger routes Starlark print() output.
func (e *Evaluator) SetLogger(l *slog.Logger) { e.logger = l }

// SetGlobal binds a name visible to every evaluation. Template context
// bindings shadow it.
func (e *Evaluator) SetGlobal(name string, value expr.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals[name] = ConvertToStarlark(value, nil)
}

// GetGlobal retrieves a global set directly or by a prelude.
func (e *Evaluator) GetGlobal(name string) (expr.Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if val, ok := e.globals[name]; ok {
		return ConvertFromStarlark(val), true
	}
	return nil, false
}

func (e *Evaluator) newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Info(msg, "source", "starlark")
		},
	}
}

func (e *Evaluator) predeclared() starlark.StringDict {
	predeclared := make(starlark.StringDict, len(e.builtins)+len(e.globals))
	for k, v := range e.builtins {
		predeclared[k] = v
	}
	e.mu.RLock()
	for k, v := range e.globals {
		predeclared[k] = v
	}
	e.mu.RUnlock()
	return predeclared
}

// Eval evaluates src against the bindings of s.
func (e *Evaluator) Eval(src string, s *expr.Scope) (expr.Value, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return expr.NoneValue{}, nil
	}
	predeclared := e.predeclared()
	if s != nil {
		for k, v := range s.Flatten() {
			predeclared[k] = ConvertToStarlark(v, s)
		}
	}
	val, err := starlark.Eval(e.newThread("ste"), "<expr>", src, predeclared)
	if err != nil {
		return nil, fmt.Errorf("starlark: %w", err)
	}
	return ConvertFromStarlark(val), nil
}

// ExecFile runs a prelude script. Its top-level definitions become
// globals for later evaluations and are frozen so concurrent renders can
// share them.
func (e *Evaluator) ExecFile(filename string, src any) (starlark.StringDict, error) {
	globals, err := starlark.ExecFile(e.newThread(filename), filename, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	globals.Freeze()

	e.mu.Lock()
	for k, v := range globals {
		e.globals[k] = v
	}
	e.mu.Unlock()
	e.logger.Debug("loaded starlark prelude", "file", filename, "globals", len(globals))
	return globals, nil
}

// ExecString executes a prelude held in a string.
func (e *Evaluator) ExecString(script string) (starlark.StringDict, error) {
	return e.ExecFile("<prelude>", script)
}

// overrides are engine functions bound in place of the Starlark builtin of
// the same name, so stringification follows the template rules.
var overrides = map[string]bool{"str": true}

// CreateBuiltins returns the names predeclared for every evaluation.
func CreateBuiltins() starlark.StringDict {
	builtins := starlark.StringDict{
		"true":      starlark.True,
		"false":     starlark.False,
		"null":      starlark.None,
		"undefined": starlark.None,
	}
	for name, fn := range expr.DefaultFunctions() {
		if _, clash := starlark.Universe[name]; clash && !overrides[name] {
			continue
		}
		builtins[name] = ConvertToStarlark(fn, nil)
	}
	builtins.Freeze()
	return builtins
}
