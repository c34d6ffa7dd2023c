// Package template compiles $-delimited templates into an immutable
// fragment tree and renders that tree against variable contexts.
//
//	Hello $user.name$!
//	$for item of items$- $item$
//	$efor$$if admin$(admin)$fi$
//
// A tag is either a block keyword (for NAME in|of EXPR, efor, if EXPR, fi)
// or an expression. Expressions are handed to an Evaluator; the default
// one implements the grammar of package expr.
package template

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/neurodesk/ste/pkg/expr"
	"github.com/neurodesk/ste/pkg/loader"
)

// DefaultMaxIncludeDepth bounds include recursion.
const DefaultMaxIncludeDepth = 32

// Evaluator evaluates one expression string against a scope.
// Implementations must be safe for concurrent use.
type Evaluator interface {
	Eval(src string, s *expr.Scope) (expr.Value, error)
}

// Template is a compiled template. It is never modified after Compile and
// can be rendered concurrently.
type Template struct {
	Name   string
	Source string
	Delim  byte
	root   []*Fragment
}

// Fragments returns the root level of the fragment tree. Callers must not
// modify it.
func (t *Template) Fragments() []*Fragment { return t.root }

type Engine struct {
	evaluator       Evaluator
	loader          loader.Loader
	logger          *slog.Logger
	delim           byte
	maxIncludeDepth int
	functions       expr.Context
}

type Option func(*Engine)

// WithEvaluator replaces the expression evaluator.
func WithEvaluator(ev Evaluator) Option { return func(e *Engine) { e.evaluator = ev } }

// WithLoader enables include(name), resolved through l.
func WithLoader(l loader.Loader) Option { return func(e *Engine) { e.loader = l } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithDelimiter changes the tag delimiter from '$'.
func WithDelimiter(d byte) Option { return func(e *Engine) { e.delim = d } }

func WithMaxIncludeDepth(n int) Option { return func(e *Engine) { e.maxIncludeDepth = n } }

// WithFunctions adds callables to every render scope, whatever the
// evaluator.
func WithFunctions(fns expr.Context) Option {
	return func(e *Engine) {
		for k, v := range fns {
			e.functions[k] = v
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		evaluator:       expr.NewInterpreter(),
		logger:          slog.Default(),
		delim:           DefaultDelimiter,
		maxIncludeDepth: DefaultMaxIncludeDepth,
		functions:       expr.Context{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Compile compiles an anonymous template.
func (e *Engine) Compile(src string) (*Template, error) {
	return e.CompileNamed("", src)
}

// CompileNamed compiles src. The name is used in errors and as the base
// for relative include paths.
func (e *Engine) CompileNamed(name, src string) (*Template, error) {
	tokens, err := tokenize(src, e.delim)
	if err != nil {
		return nil, err
	}
	root, err := build(classify(tokens))
	if err != nil {
		return nil, err
	}
	e.logger.Debug("compiled template", "name", name, "bytes", len(src), "fragments", len(root))
	return &Template{Name: name, Source: src, Delim: e.delim, root: root}, nil
}

// Render executes t against ctx. ctx is never modified.
func (e *Engine) Render(t *Template, ctx expr.Context) (string, error) {
	x := &executor{engine: e, tmpl: t}
	return x.run(expr.NewScope(ctx).Child(x.utilities()))
}

// RenderString compiles and renders src in one step.
func (e *Engine) RenderString(src string, ctx expr.Context) (string, error) {
	t, err := e.Compile(src)
	if err != nil {
		return "", err
	}
	return e.Render(t, ctx)
}

// RenderMany renders t once per context, in order. The first failure
// aborts the batch.
func (e *Engine) RenderMany(t *Template, ctxs []expr.Context) ([]string, error) {
	out := make([]string, len(ctxs))
	for i, c := range ctxs {
		s, err := e.Render(t, c)
		if err != nil {
			return nil, fmt.Errorf("context %d: %w", i, err)
		}
		out[i] = s
	}
	e.logger.Debug("rendered batch", "name", t.Name, "contexts", len(ctxs))
	return out, nil
}

// RenderParallel is RenderMany spread over at most workers goroutines
// (unbounded when workers <= 0). Results keep the order of ctxs.
func (e *Engine) RenderParallel(ctx context.Context, t *Template, ctxs []expr.Context, workers int) ([]string, error) {
	out := make([]string, len(ctxs))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, c := range ctxs {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := e.Render(t, c)
			if err != nil {
				return fmt.Errorf("context %d: %w", i, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Debug("rendered batch", "name", t.Name, "contexts", len(ctxs), "workers", workers)
	return out, nil
}

var defaultEngine = New()

// Compile compiles src with the default engine.
func Compile(src string) (*Template, error) { return defaultEngine.Compile(src) }

// Render compiles and renders src with the default engine.
func Render(src string, ctx expr.Context) (string, error) {
	return defaultEngine.RenderString(src, ctx)
}

// RenderMany compiles src once and renders it against every context.
func RenderMany(src string, ctxs []expr.Context) ([]string, error) {
	t, err := defaultEngine.Compile(src)
	if err != nil {
		return nil, err
	}
	return defaultEngine.RenderMany(t, ctxs)
}
