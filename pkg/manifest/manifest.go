// Package manifest describes batch renders in YAML: which template to
// render, against which contexts, and where each output goes.
//
//	jobs:
//	  - name: pages
//	    template: page.ste
//	    output: out/$slug$.html
//	    vars: {site: Docs}
//	    context_files: [pages.yaml]
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/neurodesk/ste/pkg/expr"
	"github.com/neurodesk/ste/pkg/template"
	v "github.com/neurodesk/ste/pkg/validator"
)

// TemplateString is a template held inline in the manifest. It always
// uses the default delimiter and expression grammar.
type TemplateString string

func (t TemplateString) Validate() error {
	if _, err := template.Compile(string(t)); err != nil {
		return fmt.Errorf("invalid template %q: %w", string(t), err)
	}
	return nil
}

func (t TemplateString) Render(ctx expr.Context) (string, error) {
	out, err := template.Render(string(t), ctx)
	if err != nil {
		return "", fmt.Errorf("rendering %q: %w", string(t), err)
	}
	return out, nil
}

type Job struct {
	Name string `yaml:"name"`
	// Template is a path relative to the manifest's directory.
	Template string `yaml:"template"`
	// Output is rendered once per context, with index bound to the
	// context's position, to give the output path.
	Output TemplateString `yaml:"output"`
	// Vars are defaults every context of the job inherits.
	Vars         map[string]any   `yaml:"vars,omitempty"`
	Contexts     []map[string]any `yaml:"contexts,omitempty"`
	ContextFiles []string         `yaml:"context_files,omitempty"`
	// Schema is a JSON schema every context must satisfy.
	Schema string `yaml:"schema,omitempty"`
}

func (j Job) Validate() error {
	return v.All(
		v.NotEmpty(j.Name, "name"),
		v.NotEmpty(j.Template, "template"),
		v.NotEmpty(string(j.Output), "output"),
		j.Output.Validate(),
		v.Map(j.ContextFiles, v.NotEmpty, "context_files"),
		v.NoDuplicates(j.ContextFiles, "context_files"),
	)
}

type Manifest struct {
	Jobs []Job `yaml:"jobs"`
	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

func (m *Manifest) Validate() error {
	names := make([]string, len(m.Jobs))
	for i, j := range m.Jobs {
		names[i] = j.Name
	}
	if len(m.Jobs) == 0 {
		return errors.New("manifest has no jobs")
	}
	return v.All(
		v.Each(m.Jobs, "jobs"),
		v.NoDuplicates(names, "job names"),
	)
}

// Path resolves p against the manifest directory.
func (m *Manifest) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, filepath.FromSlash(p))
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	m, err := Parse(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func Parse(r io.Reader, dir string) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	m.Dir = dir
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}
