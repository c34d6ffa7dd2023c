package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neurodesk/ste/pkg/template"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check template...",
		Short: "Report syntax errors in templates without rendering them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if _, _, err := a.compileFile(cmd, path); err != nil {
					failed++
					fmt.Fprintln(cmd.OutOrStdout(), err)
					continue
				}
				a.logger.Debug("template ok", "path", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d templates failed", failed, len(args))
			}
			return nil
		},
	}
}

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree [template]",
		Short: "Print the fragment tree of a compiled template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) > 0 {
				path = args[0]
			}
			t, _, err := a.compileFile(cmd, path)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), template.Pretty(t))
			return err
		},
	}
}

// compileFile reads and compiles the template at path ("-" for stdin).
// Compile errors come back as *sourceError.
func (a *app) compileFile(cmd *cobra.Command, path string) (*template.Template, string, error) {
	src, err := readTemplate(cmd, path)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	name, dir := "<stdin>", "."
	if path != "-" {
		name, dir = filepath.Base(path), filepath.Dir(path)
	}
	engine, err := a.newEngine(dir)
	if err != nil {
		return nil, src, err
	}
	t, err := engine.CompileNamed(name, src)
	if err != nil {
		return nil, src, &sourceError{path: path, src: src, err: err}
	}
	return t, src, nil
}
