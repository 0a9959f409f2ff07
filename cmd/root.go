// Package cmd defines the CLI for the curation pipeline executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/logging"
)

var (
	logger  *zap.Logger
	baseDir string
	cfgFile string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curator",
		Short: "Acquisition and curation pipeline for the lost-specs catalogue",
		Long: `curator runs the acquisition-and-curation pipeline behind the
lost-specs catalogue: it fetches registered sources politely, extracts
structural facts with confidence scores, drafts entry candidates, and
gates which drafts may be merged into the canonical entry store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&baseDir, "base", ".", "workspace directory holding entries.json and data/")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default <base>/automation.config.json)")

	cmd.AddCommand(
		newFetchCmd(),
		newExtractCmd(),
		newCandidatesCmd(),
		newPublishCmd(),
		newSourcesCmd(),
		newEntriesCmd(),
		newConfigCmd(),
		newStatusCmd(),
		newDailyCmd(),
	)
	return cmd
}

// Execute is the process entry point. Any unhandled error exits non-zero.
func Execute() {
	var err error
	logger, err = logging.New(true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func layout() batch.Layout {
	return batch.NewLayout(baseDir)
}

func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		path = layout().ConfigPath()
	}
	return config.Load(path)
}
