package contextfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema validates contexts before they are rendered.
type Schema struct {
	schema *jsonschema.Schema
}

// LoadSchema compiles a JSON schema file. YAML schemas are accepted too.
// Remote $ref are refused.
func LoadSchema(path string) (*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format != JSON {
		docs, err := Parse(b, format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(docs) != 1 {
			return nil, fmt.Errorf("%s: schema must be a single mapping", path)
		}
		if b, err = json.Marshal(docs[0]); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return CompileSchema(filepath.Base(path), b)
}

// CompileSchema compiles a JSON schema held in memory.
func CompileSchema(name string, schemaJSON []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
			return nil, fmt.Errorf("remote $ref not allowed: %s", url)
		}
		return jsonschema.LoadURL(url)
	}
	url := "schema://" + name
	if err := compiler.AddResource(url, strings.NewReader(string(schemaJSON))); err != nil {
		return nil, fmt.Errorf("adding schema %s: %w", name, err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return &Schema{schema: s}, nil
}

// Validate checks one context. Values are passed through JSON first so
// the validator sees the JSON data model.
func (s *Schema) Validate(ctx map[string]any) error {
	b, err := json.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decoding context: %w", err)
	}
	return s.schema.Validate(doc)
}
