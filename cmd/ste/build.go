package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neurodesk/ste/pkg/manifest"
)

// DefaultManifest is the manifest build reads when none is named.
const DefaultManifest = "ste-build.yaml"

func newBuildCmd(a *app) *cobra.Command {
	var (
		dryRun  bool
		workers int
	)
	cmd := &cobra.Command{
		Use:   "build [manifest]",
		Short: "Render every job of a build manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := DefaultManifest
			if len(args) > 0 {
				path = args[0]
			}
			m, err := manifest.Load(path)
			if err != nil {
				return err
			}
			engine, err := a.newEngine(m.Dir)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Workers
			}
			r := &manifest.Runner{
				Engine:  engine,
				Workers: workers,
				Logger:  a.logger,
				DryRun:  dryRun,
			}
			results, err := r.Run(cmd.Context(), m)
			if err != nil {
				return err
			}
			for _, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d bytes\n", res.Job, res.Path, res.Bytes)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render without writing any output")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent renders per job (0 means the configured value)")
	return cmd
}
