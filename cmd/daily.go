package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/extract"
	"github.com/lostspecs/curator/internal/fetch"
	"github.com/lostspecs/curator/internal/registry"
	"github.com/lostspecs/curator/internal/store"
)

func newDailyCmd() *cobra.Command {
	var (
		dryRun     bool
		fetchLimit int
	)

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Run the scheduled acquisition pass end to end",
		Long: `Runs the steps the schedule triggers every day: validate the
configuration, regenerate the source registry from entry citations,
validate both data files, fetch a snapshot batch, and extract it.
Candidate building and publishing stay manual.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Info("daily: validate config")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger.Info("daily: regenerate sources from entries")
			entries, err := store.Load(layout().EntriesPath())
			if err != nil {
				return err
			}
			reg := registry.Generate(entries, time.Now())
			if err := registry.Save(layout().SourcesPath(), reg); err != nil {
				return err
			}

			logger.Info("daily: validate data files")
			if problems := store.Validate(entries); len(problems) > 0 {
				for _, p := range problems {
					logger.Error("entry problem", zap.String("path", p.Path), zap.String("message", p.Message))
				}
				return fmt.Errorf("%d problem(s) in %s", len(problems), layout().EntriesPath())
			}
			if problems := registry.Validate(reg); len(problems) > 0 {
				for _, p := range problems {
					logger.Error("source problem", zap.String("path", p.Path), zap.String("message", p.Message))
				}
				return fmt.Errorf("%d problem(s) in %s", len(problems), layout().SourcesPath())
			}

			logger.Info("daily: fetch sources")
			opts := fetch.Options{DryRun: dryRun, Limit: fetchLimit, DelayMs: -1}
			targets := fetch.SelectTargets(reg.Items, opts)
			runner := fetch.NewRunner(cfg.Fetch, opts, logger)
			if _, err := runner.Run(cmd.Context(), layout().SnapshotsRoot(), targets, opts); err != nil {
				return err
			}

			logger.Info("daily: extract latest snapshots")
			id, ok, err := batch.Resolve(layout().SnapshotsRoot(), "")
			if err != nil {
				return err
			}
			if !ok {
				logger.Info("no snapshot batches found; nothing to extract")
				return nil
			}
			if _, err := extract.Run(layout(), id, cfg.Scoring, logger); err != nil {
				return err
			}

			logger.Info("daily: complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the fetch step without any network or batch I/O")
	cmd.Flags().IntVar(&fetchLimit, "fetch-limit", 0, "fetch at most N targets (0 = all)")
	return cmd
}
