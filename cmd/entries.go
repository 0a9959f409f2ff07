package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/store"
)

func newEntriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Work with the canonical entry store",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate entries.json, reporting every problem found",
		RunE: func(_ *cobra.Command, _ []string) error {
			entries, err := store.Load(layout().EntriesPath())
			if err != nil {
				return err
			}
			problems := store.Validate(entries)
			for _, p := range problems {
				logger.Error("entry problem", zap.String("path", p.Path), zap.String("message", p.Message))
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problem(s) in %s", len(problems), layout().EntriesPath())
			}
			logger.Info("entries validated", zap.Int("entries", len(entries)))
			return nil
		},
	})
	return cmd
}
