package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lostspecs/curator/internal/status"
)

func newStatusCmd() *cobra.Command {
	var (
		serve bool
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Regenerate the automation status and review feed files",
		Long: `Collects the latest batch summary from every reporting stage into
automation-status.json and the head of the newest review queue into
automation-review-feed.json. With --serve the files are also exposed
over HTTP for local review.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := status.Write(layout(), cfg, logger); err != nil {
				return err
			}
			if !serve {
				return nil
			}
			return status.Serve(cmd.Context(), layout(), addr, logger)
		},
	}

	cmd.Flags().BoolVar(&serve, "serve", false, "serve the status files over HTTP after writing them")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address for --serve")
	return cmd
}
