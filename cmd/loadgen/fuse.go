package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/vibe/internal/domain/fusion"
	"github.com/okian/vibe/internal/loadgen"
)

var (
	fuseGestures  string
	fuseContexts  string
	fuseTolerance int64
)

var fuseCmd = &cobra.Command{
	Use:   "fuse",
	Short: "Fuse recorded gesture and context sequences",
	Long: `Read two JSON arrays of {timestamp, emotion, confidence} readings,
pair each gesture with its nearest context reading and print the fused
readings as JSON.

Example:
  loadgen fuse --gestures g.json --context c.json --tolerance 1000`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if fuseGestures == "" || fuseContexts == "" {
			return fmt.Errorf("both --gestures and --context are required")
		}
		_, err := loadgen.FuseFiles(cmd.Context(), fuseGestures, fuseContexts, cmd.OutOrStdout(),
			fusion.WithTolerance(fuseTolerance))
		return err
	},
}

func init() {
	fuseCmd.Flags().StringVar(&fuseGestures, "gestures", "", "Path to the gesture readings JSON array")
	fuseCmd.Flags().StringVar(&fuseContexts, "context", "", "Path to the context readings JSON array")
	fuseCmd.Flags().Int64Var(&fuseTolerance, "tolerance", fusion.DefaultTolerance, "Maximum gesture/context distance in seconds")
}
