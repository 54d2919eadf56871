package main

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	watchMetricsAddr string
	watchPoll        time.Duration
)

func init() {
	cmd := newWatchCmd()
	cmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9102)")
	cmd.Flags().DurationVar(&watchPoll, "poll", 500*time.Millisecond, "Journal poll interval when idle")
	rootCmd.AddCommand(cmd)
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <drive>",
		Short: "Index a live volume and keep it current from the change journal",
		Long: `The watch command scans a mounted NTFS volume, then tails its USN change
journal so the index tracks creates, deletes, and renames as they happen.
It runs until interrupted. Windows only; requires Administrator rights.

Example:
  everidx watch C:
  everidx watch D: --metrics-addr :9102`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(args[0])
		},
	}
}
