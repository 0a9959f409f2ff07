package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with the automation configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the automation configuration, reporting every problem",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := cfgFile
			if path == "" {
				path = layout().ConfigPath()
			}
			// Bypass Load's fail-fast validation so all problems surface at once.
			cfg, err := config.LoadUnvalidated(path)
			if err != nil {
				return err
			}
			problems := cfg.Problems()
			for _, p := range problems {
				logger.Error("config problem", zap.String("message", p))
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problem(s) in %s", len(problems), path)
			}
			logger.Info("config validated", zap.String("path", path))
			return nil
		},
	})
	return cmd
}
