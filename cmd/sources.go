package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/registry"
	"github.com/lostspecs/curator/internal/store"
)

func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the source registry derived from entry citations",
	}
	cmd.AddCommand(newSourcesGenerateCmd(), newSourcesValidateCmd())
	return cmd
}

func newSourcesGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Regenerate sources.json from the entry store's citations",
		RunE: func(_ *cobra.Command, _ []string) error {
			entries, err := store.Load(layout().EntriesPath())
			if err != nil {
				return err
			}
			reg := registry.Generate(entries, time.Now())
			if err := registry.Save(layout().SourcesPath(), reg); err != nil {
				return err
			}
			logger.Info("sources generated",
				zap.Int("targets", len(reg.Items)),
				zap.String("path", layout().SourcesPath()))
			return nil
		},
	}
}

func newSourcesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate sources.json, reporting every problem found",
		RunE: func(_ *cobra.Command, _ []string) error {
			reg, err := registry.Load(layout().SourcesPath())
			if err != nil {
				return err
			}
			problems := registry.Validate(reg)
			for _, p := range problems {
				logger.Error("source problem", zap.String("path", p.Path), zap.String("message", p.Message))
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problem(s) in %s", len(problems), layout().SourcesPath())
			}
			logger.Info("sources validated", zap.Int("targets", len(reg.Items)))
			return nil
		},
	}
}
