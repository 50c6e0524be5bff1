package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crowdecho/crowdecho/internal/aggregator"
	"github.com/crowdecho/crowdecho/internal/ai"
	"github.com/crowdecho/crowdecho/internal/config"
	"github.com/crowdecho/crowdecho/internal/deduplication"
	"github.com/crowdecho/crowdecho/internal/events"
	"github.com/crowdecho/crowdecho/internal/goal"
	"github.com/crowdecho/crowdecho/internal/source"
	"github.com/crowdecho/crowdecho/internal/storage"
)

var (
	runTarget     int
	runQueries    []string
	runSeed       string
	runVariations int
	runNoAI       bool
	runVerbose    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute an aggregation run",
	Long: `Run fans the query list out across the enabled sources, merges
the results into a global unique set, and persists a snapshot of the
run. Queries come from --queries directly, or are generated from a
--seed topic (via the Anthropic API when a key is configured, otherwise
from deterministic templates).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		target := cfg.Target
		if runTarget > 0 {
			target = runTarget
		}

		queries, err := resolveQueries(cmd, target)
		if err != nil {
			return err
		}

		sources, err := buildSources(cfg)
		if err != nil {
			return err
		}

		fmt.Printf("%s target=%d queries=[%s]\n\n",
			cyan("Starting run:"), target, summarizeQueries(queries))

		acfg := aggregator.DefaultConfig()
		acfg.Fetch.Sources = sources
		acfg.Fetch.AttemptTimeout = time.Duration(cfg.AttemptTimeoutSeconds) * time.Second
		acfg.Fetch.TimeoutMultiplier = cfg.TimeoutMultiplier
		acfg.Fetch.PauseBetweenAttempts = time.Duration(cfg.PauseSeconds) * time.Second
		acfg.PerQueryRetries = cfg.PerQueryRetries
		acfg.SubTargetFloor = cfg.SubTargetFloor
		acfg.MaxConcurrency = cfg.MaxConcurrency
		acfg.Dedup = deduplication.Config{
			MinCommentLength: cfg.MinCommentLength,
			MinReplyLength:   cfg.MinReplyLength,
		}
		acfg.Sink = events.NewMultiSink(&consoleSink{verbose: runVerbose}, storage.NewEventSink(store))
		acfg.Store = store
		acfg.Backup = storage.NewFileBackup(cfg.BackupDir)

		agg, err := aggregator.New(acfg)
		if err != nil {
			return err
		}

		snap, err := agg.Run(ctx, queries, target)
		if err != nil {
			return err
		}

		printSnapshot(snap)
		printGoalStatus(goal.Analyze(
			snap.Target, snap.UniqueCount,
			snap.SuccessfulQueries+snap.FailedQueries, len(snap.Queries),
			snap.SourceStats))
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runTarget, "target", 0, "Unique-comment target (0 = config value)")
	runCmd.Flags().StringSliceVar(&runQueries, "queries", nil, "Explicit query list (skips generation)")
	runCmd.Flags().StringVar(&runSeed, "seed", "", "Seed topic to generate query variations from")
	runCmd.Flags().IntVar(&runVariations, "variations", 0, "Variation count (0 = sized from target)")
	runCmd.Flags().BoolVar(&runNoAI, "no-ai", false, "Use template variations instead of the Anthropic API")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Print every progress event")
	rootCmd.AddCommand(runCmd)
}

// resolveQueries turns the run flags into the final query list:
// explicit --queries wins, otherwise variations are generated from the
// seed topic. Generation failures fall back to templates rather than
// aborting the run.
func resolveQueries(cmd *cobra.Command, target int) ([]string, error) {
	if len(runQueries) > 0 {
		return runQueries, nil
	}
	if runSeed == "" {
		return nil, fmt.Errorf("either --queries or --seed is required")
	}

	n := runVariations
	if n <= 0 {
		n = goal.ProfileForTarget(target).QueryVariations
	}

	if runNoAI || cfg.AnthropicAPIKey == "" {
		return capQueries(ai.FallbackQueries(runSeed), n), nil
	}

	gen, err := ai.NewGenerator(&ai.Config{APIKey: cfg.AnthropicAPIKey, Model: cfg.Model})
	if err != nil {
		return nil, err
	}
	queries, err := gen.GenerateVariations(cmd.Context(), runSeed, n)
	if err != nil {
		fmt.Printf("  %s variation generation failed (%v), using templates\n", yellow("⚠"), err)
		return capQueries(ai.FallbackQueries(runSeed), n), nil
	}
	return queries, nil
}

func capQueries(queries []string, n int) []string {
	if n > 0 && len(queries) > n {
		return queries[:n]
	}
	return queries
}

// buildSources instantiates the adapters the configuration enables.
func buildSources(cfg *config.Config) ([]source.Source, error) {
	var sources []source.Source
	if cfg.Sources.YouTube.Enabled {
		yt, err := source.NewYouTubeSource(cfg.Sources.YouTube.APIKeys)
		if err != nil {
			return nil, fmt.Errorf("youtube source: %w", err)
		}
		sources = append(sources, yt)
	}
	if cfg.Sources.Reddit.Enabled {
		sources = append(sources, source.NewRedditSource(cfg.Sources.Reddit.UserAgent))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources enabled")
	}
	return sources, nil
}
