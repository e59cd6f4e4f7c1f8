package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/vibe/internal/loadgen"
)

var runCfg loadgen.Config

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send synthetic feedback and inference traffic",
	Long: `Submit generated feedback through /feedback/batch and issue /infer
calls, then wait for the worker pool to apply the accepted feedback.

Example:
  loadgen run --url http://localhost:9080 --feedback 10000 --users 50`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		stats, err := loadgen.Run(cmd.Context(), &runCfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Load Run Summary")
		fmt.Fprintln(out, "----------------")
		fmt.Fprintf(out, "Feedback generated: %d\n", stats.FeedbackGenerated)
		fmt.Fprintf(out, "Feedback accepted:  %d\n", stats.FeedbackAccepted)
		fmt.Fprintf(out, "Feedback rejected:  %d\n", stats.FeedbackRejected)
		fmt.Fprintf(out, "Feedback applied:   %d\n", stats.Processed)
		fmt.Fprintf(out, "Infers ok/failed:   %d/%d\n", stats.InfersOK, stats.InfersFailed)
		fmt.Fprintf(out, "Duration:           %s\n", stats.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runCfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&runCfg.Users, "users", 20, "Distinct synthetic users")
	f.IntVar(&runCfg.Feedback, "feedback", 1000, "Feedback events to submit")
	f.IntVar(&runCfg.Infers, "infers", 100, "Infer calls to issue")
	f.IntVar(&runCfg.BatchSize, "batch-size", 100, "Feedback items per batch request")
	f.IntVar(&runCfg.Workers, "workers", 4, "Concurrent HTTP workers")
	f.Float64Var(&runCfg.LikeRatio, "like-ratio", 0.6, "Share of feedback that is a like")
	f.Int64Var(&runCfg.Seed, "seed", 0, "Generator seed (0 picks one from the clock)")
	f.DurationVar(&runCfg.Timeout, "timeout", 10*time.Second, "HTTP request timeout")
	f.DurationVar(&runCfg.Settle, "settle", 30*time.Second, "Maximum wait for queued feedback to be applied")
}
