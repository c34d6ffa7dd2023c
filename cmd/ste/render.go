package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/neurodesk/ste/pkg/contextfile"
	"github.com/neurodesk/ste/pkg/expr"
	"github.com/neurodesk/ste/pkg/netcache"
)

// batchSeparator separates outputs of a multi-context render written to
// one stream.
const batchSeparator = "\f"

type renderOptions struct {
	contextFiles []string
	sets         []string
	evaluator    string
	schema       string
	output       string
	watch        bool
}

func newRenderCmd(a *app) *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a template against one or more contexts",
		Long: `Render a template file (or stdin when the argument is omitted or "-").

Each --context file holds one mapping or a list of mappings; every mapping
is one render. With several renders the outputs go to stdout separated by a
form feed, or to one file each when --output contains {index}.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) > 0 {
				path = args[0]
			}
			if err := a.overrideEvaluator(opts.evaluator); err != nil {
				return err
			}
			if !opts.watch {
				return a.render(cmd, path, opts)
			}
			if path == "-" {
				return fmt.Errorf("--watch needs a template file")
			}
			return a.watch(cmd.Context(), path, opts, func() error {
				return a.render(cmd, path, opts)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&opts.contextFiles, "context", "c", nil, "Context file (.yaml, .yml, .json, .cbor); repeatable")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "Set a context value as key=value (dotted keys nest); repeatable")
	cmd.Flags().StringVar(&opts.evaluator, "evaluator", "", "Expression evaluator: native or starlark (overrides config)")
	cmd.Flags().StringVar(&opts.schema, "schema", "", "JSON schema every context must satisfy")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file; {index} is replaced by the context's position")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Render again whenever an input changes")
	return cmd
}

func readTemplate(cmd *cobra.Command, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	return string(b), nil
}

// loadContexts gathers the contexts of every file, applies --set to each
// and validates them. No files means a single empty context.
func loadContexts(opts renderOptions) ([]expr.Context, error) {
	var raw []map[string]any
	for _, f := range opts.contextFiles {
		cs, err := contextfile.Load(f)
		if err != nil {
			return nil, err
		}
		raw = append(raw, cs...)
	}
	if len(raw) == 0 {
		raw = []map[string]any{{}}
	}
	var schema *contextfile.Schema
	if opts.schema != "" {
		var err error
		if schema, err = contextfile.LoadSchema(opts.schema); err != nil {
			return nil, err
		}
	}
	out := make([]expr.Context, len(raw))
	for i, c := range raw {
		for _, s := range opts.sets {
			if err := contextfile.Set(c, s); err != nil {
				return nil, err
			}
		}
		if schema != nil {
			if err := schema.Validate(c); err != nil {
				return nil, fmt.Errorf("context %d: %w", i, err)
			}
		}
		out[i] = expr.NewContextFromAny(c)
	}
	return out, nil
}

func (a *app) render(cmd *cobra.Command, path string, opts renderOptions) error {
	src, err := readTemplate(cmd, path)
	if err != nil {
		return err
	}
	name, dir := "<stdin>", "."
	if path != "-" {
		name, dir = filepath.Base(path), filepath.Dir(path)
	}
	engine, err := a.newEngine(dir)
	if err != nil {
		return err
	}
	tmpl, err := engine.CompileNamed(name, src)
	if err != nil {
		return &sourceError{path: path, src: src, err: err}
	}
	ctxs, err := loadContexts(opts)
	if err != nil {
		return err
	}

	var outs []string
	if len(ctxs) == 1 {
		out, err := engine.Render(tmpl, ctxs[0])
		if err != nil {
			return &sourceError{path: path, src: src, err: err}
		}
		outs = []string{out}
	} else {
		outs, err = engine.RenderParallel(cmd.Context(), tmpl, ctxs, a.cfg.Workers)
		if err != nil {
			return &sourceError{path: path, src: src, err: err}
		}
	}
	return writeOutputs(cmd.OutOrStdout(), opts.output, outs)
}

func writeOutputs(stdout io.Writer, output string, outs []string) error {
	if strings.Contains(output, "{index}") {
		for i, out := range outs {
			if err := writeFile(strings.ReplaceAll(output, "{index}", strconv.Itoa(i)), out); err != nil {
				return err
			}
		}
		return nil
	}
	joined := strings.Join(outs, batchSeparator)
	if output == "" || output == "-" {
		_, err := io.WriteString(stdout, joined)
		return err
	}
	return writeFile(output, joined)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// watch renders once, then again after every change to an input file.
// Directories are watched rather than files so editors that replace files
// on save are noticed.
func (a *app) watch(ctx context.Context, path string, opts renderOptions, render func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	inputs := map[string]bool{}
	for _, f := range append([]string{path, opts.schema, a.cfg.Prelude}, opts.contextFiles...) {
		if f != "" {
			inputs[filepath.Clean(f)] = true
		}
	}
	dirs := map[string]bool{}
	for f := range inputs {
		dirs[filepath.Dir(f)] = true
	}
	for _, d := range a.cfg.TemplateDirs {
		if !netcache.IsURL(d) {
			dirs[filepath.Clean(d)] = true
		}
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}
	}
	partialExt := filepath.Ext(path)

	rerender := func() {
		if err := render(); err != nil {
			a.logger.Error("render failed", "error", err)
			return
		}
		a.logger.Info("rendered", "template", path)
	}
	rerender()

	const debounce = 100 * time.Millisecond
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(ev.Name)
			if !inputs[name] && (partialExt == "" || filepath.Ext(name) != partialExt) {
				continue
			}
			a.logger.Debug("input changed", "file", name, "op", ev.Op.String())
			fire = time.After(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			rerender()
		}
	}
}
