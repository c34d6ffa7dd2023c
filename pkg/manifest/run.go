package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"

	"github.com/neurodesk/ste/pkg/contextfile"
	"github.com/neurodesk/ste/pkg/expr"
	"github.com/neurodesk/ste/pkg/template"
)

// Result describes one written output.
type Result struct {
	Job   string
	Index int
	Path  string
	Bytes int
}

type Runner struct {
	Engine *template.Engine
	// Workers bounds concurrent renders within a job; <= 0 is unbounded.
	Workers int
	Logger  *slog.Logger
	// DryRun renders everything but writes nothing.
	DryRun bool
}

// Run executes the jobs in order. Within a job the contexts render in
// parallel; nothing is written until the whole job rendered.
func (r *Runner) Run(ctx context.Context, m *Manifest) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var results []Result
	for _, job := range m.Jobs {
		res, err := r.runJob(ctx, m, job, logger)
		if err != nil {
			return results, fmt.Errorf("job %s: %w", job.Name, err)
		}
		results = append(results, res...)
	}
	return results, nil
}

func (r *Runner) runJob(ctx context.Context, m *Manifest, job Job, logger *slog.Logger) ([]Result, error) {
	src, err := os.ReadFile(m.Path(job.Template))
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	tmpl, err := r.Engine.CompileNamed(filepath.ToSlash(job.Template), string(src))
	if err != nil {
		return nil, err
	}

	raw, err := r.contexts(m, job)
	if err != nil {
		return nil, err
	}
	ctxs := make([]expr.Context, len(raw))
	paths := make([]string, len(raw))
	seen := map[string]int{}
	for i, c := range raw {
		ctxs[i] = expr.NewContextFromAny(c)
		withIndex := maps.Clone(ctxs[i])
		withIndex["index"] = expr.IntValue(i)
		p, err := job.Output.Render(withIndex)
		if err != nil {
			return nil, fmt.Errorf("context %d: output path: %w", i, err)
		}
		if p == "" {
			return nil, fmt.Errorf("context %d: output path is empty", i)
		}
		paths[i] = filepath.Clean(m.Path(p))
		if prev, dup := seen[paths[i]]; dup {
			return nil, fmt.Errorf("contexts %d and %d both write %s", prev, i, p)
		}
		seen[paths[i]] = i
	}

	outs, err := r.Engine.RenderParallel(ctx, tmpl, ctxs, r.Workers)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(outs))
	for i, out := range outs {
		results[i] = Result{Job: job.Name, Index: i, Path: paths[i], Bytes: len(out)}
		if r.DryRun {
			continue
		}
		if err := writeFileAtomic(paths[i], []byte(out)); err != nil {
			return nil, err
		}
	}
	logger.Info("rendered job", "job", job.Name, "outputs", len(results), "dry_run", r.DryRun)
	return results, nil
}

// contexts assembles the job's contexts: inline ones, then those of each
// context file, every one layered over the job vars. A job with none
// renders once against the vars alone.
func (r *Runner) contexts(m *Manifest, job Job) ([]map[string]any, error) {
	all := append([]map[string]any(nil), job.Contexts...)
	for _, f := range job.ContextFiles {
		cs, err := contextfile.Load(m.Path(f))
		if err != nil {
			return nil, err
		}
		all = append(all, cs...)
	}
	if len(all) == 0 {
		all = []map[string]any{{}}
	}

	var schema *contextfile.Schema
	if job.Schema != "" {
		var err error
		if schema, err = contextfile.LoadSchema(m.Path(job.Schema)); err != nil {
			return nil, err
		}
	}

	out := make([]map[string]any, len(all))
	for i, c := range all {
		merged := map[string]any{}
		contextfile.Merge(merged, deepCopy(job.Vars))
		contextfile.Merge(merged, deepCopy(c))
		if schema != nil {
			if err := schema.Validate(merged); err != nil {
				return nil, fmt.Errorf("context %d: %w", i, err)
			}
		}
		out[i] = merged
	}
	return out, nil
}

// deepCopy copies nested mappings so merging never writes into the
// manifest's own data.
func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, val := range m {
		if nested, ok := val.(map[string]any); ok {
			val = deepCopy(nested)
		}
		out[k] = val
	}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
