// Package goal turns aggregation progress counters into a status label,
// recommendations, and an adaptive parameter bundle for subsequent runs.
//
// Everything here is a pure function of its arguments and the fixed
// strategy table: no state, re-callable at any point with fresh counters,
// same inputs always produce the same answer.
package goal

import (
	"fmt"
	"sort"

	"github.com/crowdecho/crowdecho/internal/types"
)

// StatusLabel is the coarse progress classification of a run.
type StatusLabel string

const (
	StatusTargetAchieved   StatusLabel = "TARGET_ACHIEVED"
	StatusNearlyComplete   StatusLabel = "NEARLY_COMPLETE"
	StatusGoodProgress     StatusLabel = "GOOD_PROGRESS"
	StatusModerateProgress StatusLabel = "MODERATE_PROGRESS"
	StatusUnderperforming  StatusLabel = "UNDERPERFORMING"
	StatusEarlyStage       StatusLabel = "EARLY_STAGE"
)

// MaxEscalationLevel is the highest escalation level the analyzer emits.
const MaxEscalationLevel = 3

// StrategyParams is the adaptive parameter bundle for one escalation
// level, consumed by the orchestrator and aggregator on subsequent runs.
type StrategyParams struct {
	MaxRetries               int     `json:"max_retries"`
	TimeoutMultiplier        float64 `json:"timeout_multiplier"`
	QueryVariationMultiplier float64 `json:"query_variation_multiplier"`
	ParallelWorkers          int     `json:"parallel_workers"`
	PerSourceItemLimit       int     `json:"per_source_item_limit"`
}

// strategyTable maps escalation level to its fixed parameter row.
// Values strictly increase with the level.
var strategyTable = [MaxEscalationLevel + 1]StrategyParams{
	0: {MaxRetries: 1, TimeoutMultiplier: 1.0, QueryVariationMultiplier: 1.0, ParallelWorkers: 4, PerSourceItemLimit: 80},
	1: {MaxRetries: 2, TimeoutMultiplier: 1.2, QueryVariationMultiplier: 1.5, ParallelWorkers: 6, PerSourceItemLimit: 100},
	2: {MaxRetries: 3, TimeoutMultiplier: 1.5, QueryVariationMultiplier: 2.0, ParallelWorkers: 8, PerSourceItemLimit: 120},
	3: {MaxRetries: 4, TimeoutMultiplier: 2.0, QueryVariationMultiplier: 2.5, ParallelWorkers: 10, PerSourceItemLimit: 150},
}

// StrategyFor returns the parameter row for an escalation level.
// Out-of-range levels clamp to the normal-operation row.
func StrategyFor(level int) StrategyParams {
	if level < 0 || level > MaxEscalationLevel {
		return strategyTable[0]
	}
	return strategyTable[level]
}

// GoalStatus is the analyzer's full answer for one set of counters.
type GoalStatus struct {
	ProgressPct       float64        `json:"progress_pct"`
	CompletionRatePct float64        `json:"completion_rate_pct"`
	EscalationLevel   int            `json:"escalation_level"`
	Status            StatusLabel    `json:"status"`
	Recommendations   []string       `json:"recommendations"`
	AdaptiveStrategy  StrategyParams `json:"adaptive_strategy"`
}

// Analyze classifies progress toward the target and selects the
// adaptive strategy. achieved is the global unique-comment count so far;
// queriesCompleted/totalQueries describe how far through the query list
// the run is; sourceStats carries per-source average yields.
func Analyze(target, achieved, queriesCompleted, totalQueries int, sourceStats map[string]types.SourceStat) GoalStatus {
	progress := 0.0
	if target > 0 {
		progress = float64(achieved) / float64(target) * 100
	}
	completionRate := 0.0
	if totalQueries > 0 {
		completionRate = float64(queriesCompleted) / float64(totalQueries) * 100
	}

	level := escalationLevel(progress, completionRate)
	return GoalStatus{
		ProgressPct:       progress,
		CompletionRatePct: completionRate,
		EscalationLevel:   level,
		Status:            statusLabel(progress, completionRate),
		Recommendations:   recommendations(target, progress, completionRate, sourceStats),
		AdaptiveStrategy:  StrategyFor(level),
	}
}

// escalationLevel raises the level when the run is far through its
// queries but well short of the target.
func escalationLevel(progress, completionRate float64) int {
	switch {
	case completionRate > 70 && progress < 50:
		return 3
	case completionRate > 50 && progress < 30:
		return 2
	case completionRate > 30 && progress < 20:
		return 1
	default:
		return 0
	}
}

func statusLabel(progress, completionRate float64) StatusLabel {
	switch {
	case progress >= 100:
		return StatusTargetAchieved
	case progress >= 80:
		return StatusNearlyComplete
	case progress >= 50:
		return StatusGoodProgress
	case progress >= 25:
		return StatusModerateProgress
	case completionRate > 50:
		return StatusUnderperforming
	default:
		return StatusEarlyStage
	}
}

func recommendations(target int, progress, completionRate float64, sourceStats map[string]types.SourceStat) []string {
	var recs []string

	if progress < 25 && completionRate > 40 {
		recs = append(recs,
			"increase retry attempts per query",
			"generate more query variations",
			"extend timeout periods")
	}
	if progress < 50 && completionRate > 60 {
		recs = append(recs,
			"enable aggressive escalation mode",
			"use all available API keys simultaneously",
			"focus on high-performing sources")
	}

	recs = append(recs, sourceRecommendation(sourceStats))

	if target > 10000 {
		recs = append(recs, "enable large-scale processing mode")
	}
	if target > 50000 {
		recs = append(recs, "activate maximum parallelization")
	}
	return recs
}

// sourceRecommendation compares per-source average yields and suggests
// prioritizing one source when it out-yields the runner-up by more than
// 2x. Sources are visited in name order so the answer is deterministic.
func sourceRecommendation(sourceStats map[string]types.SourceStat) string {
	if len(sourceStats) < 2 {
		return "maintain balanced source strategy"
	}

	names := make([]string, 0, len(sourceStats))
	for name := range sourceStats {
		names = append(names, name)
	}
	sort.Strings(names)

	best, second := "", ""
	for _, name := range names {
		avg := sourceStats[name].AvgComments
		switch {
		case best == "" || avg > sourceStats[best].AvgComments:
			second = best
			best = name
		case second == "" || avg > sourceStats[second].AvgComments:
			second = name
		}
	}

	if sourceStats[best].AvgComments > sourceStats[second].AvgComments*2 {
		return fmt.Sprintf("prioritize %s (higher yield)", best)
	}
	return "maintain balanced source strategy"
}
