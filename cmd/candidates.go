package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/candidate"
)

func newCandidatesCmd() *cobra.Command {
	var batchName string

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Build entry candidates from an extraction batch",
		Long: `Cross-references an extraction batch against the current entry store
and source registry, classifying each extraction as a new entry or an
evidence update and drafting a suggested entry for review.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			id, ok, err := batch.Resolve(layout().ExtractedRoot(), batchName)
			if err != nil {
				return err
			}
			if !ok {
				logger.Info("no extraction batches found; nothing to transform")
				return nil
			}
			_, err = candidate.Run(layout(), id, cfg, logger)
			return err
		},
	}

	cmd.Flags().StringVar(&batchName, "batch", "", "extraction batch to process (default: latest)")
	return cmd
}
