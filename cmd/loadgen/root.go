package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/vibe/pkg/logger"
)

var (
	cfgLogLevel  string
	cfgLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Traffic generator and offline fusion tool for the recommender",
	Long: `loadgen drives a running recommender with synthetic feedback and
inference traffic, and fuses recorded gesture/context sequences offline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := logger.Init(logger.WithFormat(cfgLogFormat)); err != nil {
			return err
		}
		return logger.SetLevelString(cfgLogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&cfgLogFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fuseCmd)
}
