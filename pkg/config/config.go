// Package config loads ste.yaml and STE_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	v "github.com/neurodesk/ste/pkg/validator"
)

// FileName is the config file looked up when none is given.
const FileName = "ste.yaml"

const (
	EvaluatorNative   = "native"
	EvaluatorStarlark = "starlark"
)

type Config struct {
	// TemplateDirs are searched in order by include. An http or https URL
	// is fetched through the cache in CacheDir.
	TemplateDirs []string `yaml:"template_dirs,omitempty"`
	CacheDir     string   `yaml:"cache_dir,omitempty"`
	// Evaluator is "native" (the expr grammar) or "starlark".
	Evaluator string `yaml:"evaluator,omitempty"`
	// Prelude is a Starlark file run once before rendering.
	Prelude         string `yaml:"prelude,omitempty"`
	Delimiter       string `yaml:"delimiter,omitempty"`
	MaxIncludeDepth int    `yaml:"max_include_depth,omitempty"`
	// Workers bounds parallel rendering; 0 means unbounded.
	Workers  int    `yaml:"workers,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

func Default() *Config {
	return &Config{
		TemplateDirs:    []string{"."},
		Evaluator:       EvaluatorNative,
		Delimiter:       "$",
		MaxIncludeDepth: 32,
		LogLevel:        "info",
	}
}

// Load reads path on top of the defaults, then applies the environment.
// A missing file is not an error when optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && optional:
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := cfg.decode(b); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(b []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from STE_TEMPLATE_DIRS (path list separated
// by os.PathListSeparator), STE_EVALUATOR, STE_CACHE_DIR, STE_PRELUDE, STE_DELIMITER,
// STE_MAX_INCLUDE_DEPTH, STE_WORKERS and STE_LOG_LEVEL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if val, ok := lookup("STE_TEMPLATE_DIRS"); ok && val != "" {
		c.TemplateDirs = strings.Split(val, string(os.PathListSeparator))
	}
	if val, ok := lookup("STE_EVALUATOR"); ok && val != "" {
		c.Evaluator = val
	}
	if val, ok := lookup("STE_CACHE_DIR"); ok && val != "" {
		c.CacheDir = val
	}
	if val, ok := lookup("STE_PRELUDE"); ok && val != "" {
		c.Prelude = val
	}
	if val, ok := lookup("STE_DELIMITER"); ok && val != "" {
		c.Delimiter = val
	}
	if val, ok := lookup("STE_LOG_LEVEL"); ok && val != "" {
		c.LogLevel = val
	}
	for name, dst := range map[string]*int{
		"STE_MAX_INCLUDE_DEPTH": &c.MaxIncludeDepth,
		"STE_WORKERS":           &c.Workers,
	} {
		val, ok := lookup(name)
		if !ok || val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) Validate() error {
	return v.All(
		v.Map(c.TemplateDirs, v.NotEmpty, "template_dirs"),
		v.NoDuplicates(c.TemplateDirs, "template_dirs"),
		v.MatchesAllowed(c.Evaluator, []string{EvaluatorNative, EvaluatorStarlark}, "evaluator"),
		c.validatePrelude(),
		v.Delimiter(c.Delimiter, "delimiter"),
		v.InRange(c.MaxIncludeDepth, 1, 1024, "max_include_depth"),
		v.InRange(c.Workers, 0, 4096, "workers"),
		v.MatchesAllowed(c.LogLevel, []string{"debug", "info", "warn", "error"}, "log_level"),
	)
}

func (c *Config) validatePrelude() error {
	if c.Prelude != "" && c.Evaluator != EvaluatorStarlark {
		return fmt.Errorf("prelude requires the %s evaluator", EvaluatorStarlark)
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// DelimiterByte returns the tag delimiter. Validate guarantees one byte.
func (c *Config) DelimiterByte() byte {
	if c.Delimiter == "" {
		return '$'
	}
	return c.Delimiter[0]
}

// CachePath returns CacheDir, defaulting to "ste" under the user cache
// directory.
func (c *Config) CachePath() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache directory: %w", err)
	}
	return filepath.Join(dir, "ste"), nil
}
