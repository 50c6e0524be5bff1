package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/crowdecho/crowdecho/internal/events"
	"github.com/crowdecho/crowdecho/internal/goal"
	"github.com/crowdecho/crowdecho/internal/types"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// consoleSink prints selected progress events while a run executes.
// Low-level attempt/source noise stays out of the terminal; the full
// stream is persisted through the storage sink.
type consoleSink struct {
	verbose bool
}

func (s *consoleSink) Emit(_ context.Context, e *events.Event) error {
	switch e.Type {
	case events.EventTypeRunStarted, events.EventTypeQueryCompleted:
		fmt.Printf("  %s %s\n", gray("·"), e.Message)
	case events.EventTypeQueryFailed:
		fmt.Printf("  %s %q: %s\n", red("✗"), e.Query, e.Message)
	case events.EventTypeTargetReached:
		fmt.Printf("  %s %s\n", green("✓"), e.Message)
	case events.EventTypeSnapshotSaveFailed:
		fmt.Printf("  %s %s\n", yellow("⚠"), e.Message)
	default:
		if s.verbose {
			fmt.Printf("  %s %s\n", gray("·"), e.Message)
		}
	}
	return nil
}

// printSnapshot renders the final run report.
func printSnapshot(snap *types.RunSnapshot) {
	fmt.Printf("\n%s\n\n", cyan("=== Aggregation Result ==="))

	achieved := red("not reached")
	if snap.TargetAchieved {
		achieved = green("reached")
	}
	fmt.Printf("  Run:      %s\n", snap.RunID)
	fmt.Printf("  Unique:   %d / %d (target %s)\n", snap.UniqueCount, snap.Target, achieved)
	fmt.Printf("  Fetched:  %d comments, %d replies (%d total)\n",
		snap.TotalProcessedComments, snap.TotalProcessedReplies, snap.GrandTotal)
	fmt.Printf("  Queries:  %s succeeded, %s failed\n",
		green(fmt.Sprintf("%d", snap.SuccessfulQueries)), red(fmt.Sprintf("%d", snap.FailedQueries)))
	fmt.Printf("  Elapsed:  %.1fs\n", snap.ProcessingTimeSeconds)

	if len(snap.SourceStats) > 0 {
		fmt.Printf("\n%s\n", yellow("Sources:"))
		for name, stat := range snap.SourceStats {
			fmt.Printf("  %-10s %d comments over %d queries (avg %.1f)\n",
				name, stat.TotalComments, stat.Queries, stat.AvgComments)
		}
	}

	if len(snap.QueryResults) > 0 {
		fmt.Printf("\n%s\n", yellow("Queries:"))
		for _, qr := range snap.QueryResults {
			icon := green("●")
			if qr.Status == types.QueryStatusFailed {
				icon = red("○")
			}
			fmt.Printf("  %s %q: %d comments, %d new unique", icon, qr.Query, qr.TotalComments, qr.NewUniqueComments)
			if qr.Error != "" {
				fmt.Printf(" %s", gray("("+qr.Error+")"))
			}
			fmt.Println()
		}
	}
	fmt.Println()
}

// printGoalStatus renders the analyzer's answer for a snapshot.
func printGoalStatus(status goal.GoalStatus) {
	fmt.Printf("%s\n", yellow("Goal analysis:"))

	label := string(status.Status)
	colored := label
	switch status.Status {
	case goal.StatusTargetAchieved, goal.StatusNearlyComplete:
		colored = green(label)
	case goal.StatusUnderperforming:
		colored = red(label)
	default:
		colored = yellow(label)
	}
	fmt.Printf("  Status:     %s (%.1f%% of target, %.1f%% of queries)\n",
		colored, status.ProgressPct, status.CompletionRatePct)
	fmt.Printf("  Escalation: level %d\n", status.EscalationLevel)

	if len(status.Recommendations) > 0 {
		fmt.Printf("  Recommendations:\n")
		for _, rec := range status.Recommendations {
			fmt.Printf("    - %s\n", rec)
		}
	}

	s := status.AdaptiveStrategy
	fmt.Printf("  Next-run strategy: retries=%d timeout=%.1fx variations=%.1fx workers=%d per-source=%d\n",
		s.MaxRetries, s.TimeoutMultiplier, s.QueryVariationMultiplier, s.ParallelWorkers, s.PerSourceItemLimit)
	fmt.Println()
}

// shortID truncates a run ID for compact listings. Stored payloads can
// carry arbitrary run IDs, so short ones pass through unchanged.
func shortID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

// summarizeQueries joins a query list for display, truncated for long runs.
func summarizeQueries(queries []string) string {
	if len(queries) <= 4 {
		return strings.Join(queries, ", ")
	}
	return fmt.Sprintf("%s, ... (%d total)", strings.Join(queries[:4], ", "), len(queries))
}
