package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/publish"
)

func newPublishCmd() *cobra.Command {
	var (
		batchName string
		apply     bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Evaluate a candidate batch against the publish gate",
		Long: `Runs the publish gate over a candidate batch and writes the evaluation
reports. Without --apply this is a plan: the entry store is never touched.
With --apply, accepted drafts are appended to entries.json.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			id, ok, err := batch.Resolve(layout().CandidatesRoot(), batchName)
			if err != nil {
				return err
			}
			if !ok {
				logger.Info("no candidate batches found; nothing to publish")
				return nil
			}
			_, err = publish.Run(layout(), id, cfg, apply, logger)
			return err
		},
	}

	cmd.Flags().StringVar(&batchName, "batch", "", "candidate batch to process (default: latest)")
	cmd.Flags().BoolVar(&apply, "apply", false, "append accepted drafts to the entry store")
	return cmd
}
