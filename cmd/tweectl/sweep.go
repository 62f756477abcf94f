package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sweepOlderThan time.Duration
	sweepDryRun    bool
)

var sweepAvatarsCmd = &cobra.Command{
	Use:   "sweep-avatars",
	Short: "Delete avatar uploads no profile refers to",
	Long: `Delete objects under avatar/ that no profile's avatar field points at and
that were last written before the grace period. Uploads made from an editor
that was never submitted end up here.`,
	RunE: runSweepAvatars,
}

func init() {
	sweepAvatarsCmd.Flags().DurationVar(&sweepOlderThan, "older-than", 24*time.Hour, "grace period for unsubmitted uploads")
	sweepAvatarsCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "report without deleting")
}

func runSweepAvatars(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer c.Close(ctx)

	res, err := c.Sweeper.Sweep(ctx, sweepOlderThan, sweepDryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "deleted"
	if sweepDryRun {
		verb = "would delete"
	}
	for _, p := range res.Deleted {
		fmt.Fprintf(out, "%s %s\n", verb, p)
	}
	fmt.Fprintf(out, "scanned %d, kept %d, %s %d\n", res.Scanned, res.Kept, verb, len(res.Deleted))
	return nil
}
