package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crowdecho/crowdecho/internal/ai"
	"github.com/crowdecho/crowdecho/internal/goal"
	"github.com/crowdecho/crowdecho/internal/types"
)

var analyzeSuggest bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [run-id]",
	Short: "Analyze a stored run against its target",
	Long: `Analyze loads a persisted run snapshot and reports goal progress,
escalation level, and the adaptive strategy a follow-up run should use.
With no argument the most recent run is analyzed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var snap *types.RunSnapshot
		var err error
		if len(args) == 1 {
			snap, err = store.GetSnapshot(ctx, args[0])
		} else {
			snaps, lerr := store.ListRecentSnapshots(ctx, 1)
			if lerr != nil {
				return lerr
			}
			if len(snaps) == 0 {
				return fmt.Errorf("no stored runs to analyze")
			}
			snap = snaps[0]
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s %s (completed %s)\n\n",
			cyan("Run:"), snap.RunID, snap.CompletedAt.Format("2006-01-02 15:04:05"))
		printSnapshot(snap)
		printGoalStatus(goal.Analyze(
			snap.Target, snap.UniqueCount,
			snap.SuccessfulQueries+snap.FailedQueries, len(snap.Queries),
			snap.SourceStats))

		if deficit := snap.Target - snap.UniqueCount; deficit > 0 {
			dist := goal.PlanQueryDistribution(len(snap.Queries), deficit, averagePerQuery(snap))
			fmt.Printf("%s %s: %d queries at ~%d each\n\n",
				yellow("Follow-up plan"), dist.Strategy, dist.RecommendedQueries, dist.PerQueryTarget)

			if analyzeSuggest {
				printSuggestedQueries(cmd, snap, deficit)
			}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeSuggest, "suggest", false,
		"Suggest follow-up queries for the remaining deficit")
	rootCmd.AddCommand(analyzeCmd)
}

// printSuggestedQueries proposes queries for a follow-up run, seeded
// from the run's first query with its successful queries as patterns.
// Generation degrades to templates without an API key.
func printSuggestedQueries(cmd *cobra.Command, snap *types.RunSnapshot, deficit int) {
	if len(snap.Queries) == 0 {
		return
	}
	seed := snap.Queries[0]

	var patterns []string
	for _, qr := range snap.QueryResults {
		if qr.Status == types.QueryStatusSuccess {
			patterns = append(patterns, qr.Query)
		}
	}

	var suggestions []string
	if gen, err := ai.NewGenerator(&ai.Config{APIKey: cfg.AnthropicAPIKey, Model: cfg.Model}); err == nil {
		suggestions = gen.GenerateEmergencyQueries(cmd.Context(), seed, deficit, patterns)
	} else {
		suggestions = ai.FallbackQueries(seed)
	}

	fmt.Printf("%s\n", yellow("Suggested queries:"))
	for _, q := range suggestions {
		fmt.Printf("  - %s\n", q)
	}
	fmt.Println()
}

// averagePerQuery estimates per-query yield from the completed run,
// for sizing a follow-up distribution.
func averagePerQuery(snap *types.RunSnapshot) int {
	if snap.SuccessfulQueries == 0 {
		return 0
	}
	return snap.UniqueCount / snap.SuccessfulQueries
}
