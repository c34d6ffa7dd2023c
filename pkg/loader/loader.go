// Package loader resolves template names to template source for include.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

type Loader interface {
	Load(name string) (string, error)
}

// ErrNotFound matches every NotFoundError.
var ErrNotFound = errors.New("template not found")

type NotFoundError struct{ Name string }

func (e *NotFoundError) Error() string        { return "template not found: " + e.Name }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MemoryLoader serves templates from a map, keyed by cleaned name.
type MemoryLoader map[string]string

func (m MemoryLoader) Load(name string) (string, error) {
	if s, ok := m[path.Clean(name)]; ok {
		return s, nil
	}
	return "", &NotFoundError{Name: name}
}

// FSLoader reads templates from a file system. Names are slash separated
// and may not leave the root.
type FSLoader struct {
	FS fs.FS
}

// Dir returns a loader rooted at a directory on disk.
func Dir(dir string) FSLoader {
	return FSLoader{FS: os.DirFS(dir)}
}

func (l FSLoader) Load(name string) (string, error) {
	clean := path.Clean(name)
	if !fs.ValidPath(clean) {
		return "", fmt.Errorf("invalid template name %q", name)
	}
	b, err := fs.ReadFile(l.FS, clean)
	if errors.Is(err, fs.ErrNotExist) {
		return "", &NotFoundError{Name: name}
	}
	if err != nil {
		return "", fmt.Errorf("reading template %s: %w", name, err)
	}
	return string(b), nil
}

// Chain tries each loader in turn and returns the first template found.
type Chain []Loader

func (c Chain) Load(name string) (string, error) {
	for _, l := range c {
		s, err := l.Load(name)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", &NotFoundError{Name: name}
}

// Resolve interprets name relative to the directory of the template from.
// A leading slash makes name relative to the loader root instead.
func Resolve(from, name string) string {
	if strings.HasPrefix(name, "/") {
		return path.Clean(strings.TrimLeft(name, "/"))
	}
	return path.Join(path.Dir(from), name)
}
