package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neurodesk/ste/pkg/config"
	"github.com/neurodesk/ste/pkg/diag"
	"github.com/neurodesk/ste/pkg/expr"
	"github.com/neurodesk/ste/pkg/loader"
	"github.com/neurodesk/ste/pkg/netcache"
	"github.com/neurodesk/ste/pkg/starlark"
	"github.com/neurodesk/ste/pkg/template"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

// sourceError is a template error that should be printed with its source
// location rather than logged.
type sourceError struct {
	path string
	src  string
	err  error
}

func (e *sourceError) Error() string { return diag.Format(e.path, e.src, e.err) }
func (e *sourceError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "ste",
		Short:         "Render $-delimited text templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.FileName, "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newRenderCmd(a))
	rootCmd.AddCommand(newCheckCmd(a))
	rootCmd.AddCommand(newTreeCmd(a))
	rootCmd.AddCommand(newBuildCmd(a))
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	// The default config file is optional; one named on the command line
	// must exist.
	cfg, err := config.Load(a.configPath, !cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	a.cfg = cfg
	level := cfg.Level()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// newEngine builds an engine from the configuration. Includes resolve
// against extraDirs first, then the configured template directories.
func (a *app) newEngine(extraDirs ...string) (*template.Engine, error) {
	ev, err := a.newEvaluator()
	if err != nil {
		return nil, err
	}
	var (
		chain loader.Chain
		cache *netcache.Cache
	)
	for _, dir := range append(extraDirs, a.cfg.TemplateDirs...) {
		if !netcache.IsURL(dir) {
			chain = append(chain, loader.Dir(dir))
			continue
		}
		if cache == nil {
			cacheDir, err := a.cfg.CachePath()
			if err != nil {
				return nil, err
			}
			cache = netcache.New(cacheDir)
			cache.Logger = a.logger
		}
		l, err := netcache.NewLoader(dir, cache)
		if err != nil {
			return nil, err
		}
		chain = append(chain, l)
	}
	return template.New(
		template.WithEvaluator(ev),
		template.WithLoader(chain),
		template.WithLogger(a.logger),
		template.WithDelimiter(a.cfg.DelimiterByte()),
		template.WithMaxIncludeDepth(a.cfg.MaxIncludeDepth),
	), nil
}

func (a *app) newEvaluator() (template.Evaluator, error) {
	if a.cfg.Evaluator != config.EvaluatorStarlark {
		return expr.NewInterpreter(), nil
	}
	ev := starlark.NewEvaluator()
	ev.SetLogger(a.logger)
	if a.cfg.Prelude != "" {
		src, err := os.ReadFile(a.cfg.Prelude)
		if err != nil {
			return nil, fmt.Errorf("reading prelude: %w", err)
		}
		if _, err := ev.ExecFile(filepath.Base(a.cfg.Prelude), src); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// overrideEvaluator applies an --evaluator flag on top of the config.
func (a *app) overrideEvaluator(name string) error {
	if name == "" {
		return nil
	}
	a.cfg.Evaluator = name
	return a.cfg.Validate()
}

func appMain() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func main() {
	if err := appMain(); err != nil {
		var se *sourceError
		if errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
