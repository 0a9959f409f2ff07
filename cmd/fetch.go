package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lostspecs/curator/internal/fetch"
	"github.com/lostspecs/curator/internal/registry"
)

func newFetchCmd() *cobra.Command {
	opts := fetch.Options{DelayMs: -1}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one snapshot per registered source into a new batch",
		Long: `Processes the source registry in priority-then-id order, consulting
the fetch policy engine for every target. Allowed targets are fetched with a
single GET; rejected ones produce skipped records. Results land in a new
immutable batch under data/snapshots.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := registry.Load(layout().SourcesPath())
			if err != nil {
				return err
			}
			targets := fetch.SelectTargets(reg.Items, opts)
			runner := fetch.NewRunner(cfg.Fetch, opts, logger)
			_, err = runner.Run(cmd.Context(), layout().SnapshotsRoot(), targets, opts)
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the fetch plan without any network or batch I/O")
	cmd.Flags().BoolVar(&opts.IncludeDisabled, "include-disabled", false, "also fetch targets marked disabled")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "fetch at most N targets (0 = all)")
	cmd.Flags().IntVar(&opts.DelayMs, "delay-ms", -1, "override the configured inter-item delay in milliseconds")
	return cmd
}
