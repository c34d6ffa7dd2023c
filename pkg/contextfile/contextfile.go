// Package contextfile reads render contexts from YAML, JSON and CBOR
// files, applies key=value overrides and validates the result against a
// JSON schema.
package contextfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	CBOR Format = "cbor"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	case ".cbor":
		return CBOR, nil
	}
	return "", fmt.Errorf("unsupported context file %q: want .yaml, .yml, .json or .cbor", path)
}

var cborDecMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// Load reads one context file. Its top level must be a mapping, or a
// sequence of mappings for a batch.
func Load(path string) ([]map[string]any, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading context: %w", err)
	}
	ctxs, err := Parse(b, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ctxs, nil
}

// Parse decodes b. A document that is a single mapping yields one context.
func Parse(b []byte, format Format) ([]map[string]any, error) {
	var doc any
	switch format {
	case YAML:
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		doc = normalizeJSON(doc)
	case CBOR:
		if len(b) > 0 {
			if err := cborDecMode.Unmarshal(b, &doc); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	switch t := doc.(type) {
	case nil:
		return []map[string]any{{}}, nil
	case map[string]any:
		return []map[string]any{t}, nil
	case []any:
		out := make([]map[string]any, len(t))
		for i, it := range t {
			m, ok := it.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("context %d is %T, want a mapping", i, it)
			}
			out[i] = m
		}
		return out, nil
	}
	return nil, fmt.Errorf("top level is %T, want a mapping or a list of mappings", doc)
}

// normalizeJSON turns json.Number into int64 when exact, float64 otherwise.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, vv := range t {
			t[k] = normalizeJSON(vv)
		}
	case []any:
		for i, vv := range t {
			t[i] = normalizeJSON(vv)
		}
	}
	return v
}

// Merge copies src into dst. Nested mappings merge key by key; anything
// else in src replaces the value in dst.
func Merge(dst, src map[string]any) {
	for k, sv := range src {
		sm, sok := sv.(map[string]any)
		dm, dok := dst[k].(map[string]any)
		if sok && dok {
			Merge(dm, sm)
			continue
		}
		dst[k] = sv
	}
}

// Set applies one key=value assignment. Dotted keys address nested
// mappings, created as needed. The value is read as YAML, so n=3 binds
// an int, ok=true a bool and xs=[a,b] a list; anything that reads as a
// mapping stays a string.
func Set(dst map[string]any, assignment string) error {
	key, raw, ok := strings.Cut(assignment, "=")
	if !ok || key == "" {
		return fmt.Errorf("invalid assignment %q: want key=value", assignment)
	}
	var val any
	if err := yaml.Unmarshal([]byte(raw), &val); err != nil {
		val = raw
	}
	switch val.(type) {
	case nil:
		if raw != "" && raw != "null" && raw != "~" {
			val = raw
		}
	case map[string]any:
		val = raw
	}
	parts := strings.Split(key, ".")
	m := dst
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = val
	return nil
}
