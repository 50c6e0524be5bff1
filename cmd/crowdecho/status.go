package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		snaps, err := store.ListRecentSnapshots(cmd.Context(), statusLimit)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		fmt.Printf("%s\n\n", cyan("Recent runs:"))
		for _, snap := range snaps {
			icon := red("○")
			if snap.TargetAchieved {
				icon = green("●")
			}
			fmt.Printf("  %s %s  %s  %d/%d unique  %dq (%d failed)  %.1fs\n",
				icon, shortID(snap.RunID),
				snap.CompletedAt.Format("2006-01-02 15:04"),
				snap.UniqueCount, snap.Target,
				len(snap.Queries), snap.FailedQueries,
				snap.ProcessingTimeSeconds)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of runs to show")
	rootCmd.AddCommand(statusCmd)
}
