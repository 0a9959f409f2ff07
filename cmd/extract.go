package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/extract"
)

func newExtractCmd() *cobra.Command {
	var batchName string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract structural facts and scores from a snapshot batch",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			id, ok, err := batch.Resolve(layout().SnapshotsRoot(), batchName)
			if err != nil {
				return err
			}
			if !ok {
				logger.Info("no snapshot batches found; nothing to extract")
				return nil
			}
			_, err = extract.Run(layout(), id, cfg.Scoring, logger)
			return err
		},
	}

	cmd.Flags().StringVar(&batchName, "batch", "", "snapshot batch to process (default: latest)")
	return cmd
}
