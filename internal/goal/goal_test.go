package goal

import (
	"reflect"
	"strings"
	"testing"

	"github.com/crowdecho/crowdecho/internal/types"
)

func TestEscalationBoundary(t *testing.T) {
	// 8/10 queries done (80% > 70) with 100/1000 achieved (10% < 50)
	// must hit the highest escalation level.
	status := Analyze(1000, 100, 8, 10, nil)

	if status.CompletionRatePct != 80 {
		t.Errorf("completion rate = %v, want 80", status.CompletionRatePct)
	}
	if status.ProgressPct != 10 {
		t.Errorf("progress = %v, want 10", status.ProgressPct)
	}
	if status.EscalationLevel != 3 {
		t.Errorf("escalation level = %d, want 3", status.EscalationLevel)
	}
	if status.AdaptiveStrategy != StrategyFor(3) {
		t.Errorf("strategy = %+v, want level-3 row", status.AdaptiveStrategy)
	}
}

func TestEscalationLevels(t *testing.T) {
	tests := []struct {
		name                     string
		progress, completionRate float64
		want                     int
	}{
		{name: "high completion low progress", completionRate: 71, progress: 49, want: 3},
		{name: "medium completion low progress", completionRate: 51, progress: 29, want: 2},
		{name: "some completion very low progress", completionRate: 31, progress: 19, want: 1},
		{name: "early run", completionRate: 10, progress: 5, want: 0},
		{name: "on track", completionRate: 80, progress: 75, want: 0},
		{name: "level-2 band excluded by progress", completionRate: 51, progress: 35, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escalationLevel(tt.progress, tt.completionRate); got != tt.want {
				t.Errorf("escalationLevel(%v, %v) = %d, want %d",
					tt.progress, tt.completionRate, got, tt.want)
			}
		})
	}
}

func TestStatusLabels(t *testing.T) {
	tests := []struct {
		name                     string
		progress, completionRate float64
		want                     StatusLabel
	}{
		{name: "achieved", progress: 100, want: StatusTargetAchieved},
		{name: "overshoot", progress: 130, want: StatusTargetAchieved},
		{name: "nearly complete", progress: 85, want: StatusNearlyComplete},
		{name: "good progress", progress: 60, want: StatusGoodProgress},
		{name: "moderate progress", progress: 30, want: StatusModerateProgress},
		{name: "underperforming", progress: 10, completionRate: 60, want: StatusUnderperforming},
		{name: "early stage", progress: 10, completionRate: 20, want: StatusEarlyStage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusLabel(tt.progress, tt.completionRate); got != tt.want {
				t.Errorf("statusLabel(%v, %v) = %q, want %q",
					tt.progress, tt.completionRate, got, tt.want)
			}
		})
	}
}

func TestAnalyzeIsPure(t *testing.T) {
	stats := map[string]types.SourceStat{
		"youtube": {Queries: 4, TotalComments: 400, AvgComments: 100},
		"reddit":  {Queries: 4, TotalComments: 80, AvgComments: 20},
	}

	first := Analyze(5000, 600, 6, 10, stats)
	second := Analyze(5000, 600, 6, 10, stats)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("same inputs produced different answers:\n%+v\n%+v", first, second)
	}
}

func TestStrategyTableMonotonicity(t *testing.T) {
	for level := 1; level <= MaxEscalationLevel; level++ {
		lo, hi := StrategyFor(level-1), StrategyFor(level)
		if hi.MaxRetries <= lo.MaxRetries {
			t.Errorf("level %d max retries %d not above level %d's %d", level, hi.MaxRetries, level-1, lo.MaxRetries)
		}
		if hi.TimeoutMultiplier <= lo.TimeoutMultiplier {
			t.Errorf("level %d timeout multiplier %v not above level %d's %v", level, hi.TimeoutMultiplier, level-1, lo.TimeoutMultiplier)
		}
		if hi.QueryVariationMultiplier <= lo.QueryVariationMultiplier {
			t.Errorf("level %d variation multiplier %v not above level %d's %v", level, hi.QueryVariationMultiplier, level-1, lo.QueryVariationMultiplier)
		}
		if hi.ParallelWorkers <= lo.ParallelWorkers {
			t.Errorf("level %d workers %d not above level %d's %d", level, hi.ParallelWorkers, level-1, lo.ParallelWorkers)
		}
		if hi.PerSourceItemLimit <= lo.PerSourceItemLimit {
			t.Errorf("level %d item limit %d not above level %d's %d", level, hi.PerSourceItemLimit, level-1, lo.PerSourceItemLimit)
		}
	}
}

func TestStrategyForClampsOutOfRange(t *testing.T) {
	if StrategyFor(-1) != StrategyFor(0) {
		t.Error("negative level should clamp to normal operation")
	}
	if StrategyFor(99) != StrategyFor(0) {
		t.Error("oversized level should clamp to normal operation")
	}
}

func TestSourceRecommendation(t *testing.T) {
	tests := []struct {
		name  string
		stats map[string]types.SourceStat
		want  string
	}{
		{
			name: "youtube dominant",
			stats: map[string]types.SourceStat{
				"youtube": {AvgComments: 100},
				"reddit":  {AvgComments: 20},
			},
			want: "prioritize youtube (higher yield)",
		},
		{
			name: "reddit dominant",
			stats: map[string]types.SourceStat{
				"youtube": {AvgComments: 10},
				"reddit":  {AvgComments: 50},
			},
			want: "prioritize reddit (higher yield)",
		},
		{
			name: "comparable yields",
			stats: map[string]types.SourceStat{
				"youtube": {AvgComments: 40},
				"reddit":  {AvgComments: 30},
			},
			want: "maintain balanced source strategy",
		},
		{
			name: "exactly 2x is not enough",
			stats: map[string]types.SourceStat{
				"youtube": {AvgComments: 40},
				"reddit":  {AvgComments: 20},
			},
			want: "maintain balanced source strategy",
		},
		{
			name:  "single source",
			stats: map[string]types.SourceStat{"youtube": {AvgComments: 40}},
			want:  "maintain balanced source strategy",
		},
		{name: "no stats", stats: nil, want: "maintain balanced source strategy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sourceRecommendation(tt.stats); got != tt.want {
				t.Errorf("sourceRecommendation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecommendationsScaleWithTarget(t *testing.T) {
	status := Analyze(60000, 60000, 10, 10, nil)

	joined := strings.Join(status.Recommendations, "\n")
	if !strings.Contains(joined, "large-scale processing") {
		t.Errorf("missing large-scale recommendation above 10k: %v", status.Recommendations)
	}
	if !strings.Contains(joined, "maximum parallelization") {
		t.Errorf("missing parallelization recommendation above 50k: %v", status.Recommendations)
	}

	small := Analyze(500, 500, 10, 10, nil)
	if strings.Contains(strings.Join(small.Recommendations, "\n"), "large-scale") {
		t.Errorf("small target should not trigger scale recommendations: %v", small.Recommendations)
	}
}

func TestPlanQueryDistribution(t *testing.T) {
	tests := []struct {
		name                      string
		queries, target, estimate int
		wantStrategy              DistributionStrategy
		wantQueries, wantPerQuery int
		wantAggressive            bool
	}{
		{
			name: "scale up when queries cannot cover target",
			queries: 5, target: 10000, estimate: 500,
			wantStrategy: DistributionScaleUp, wantQueries: 10, wantPerQuery: 500, wantAggressive: true,
		},
		{
			name: "scale up capped at double",
			queries: 3, target: 50000, estimate: 500,
			wantStrategy: DistributionScaleUp, wantQueries: 6, wantPerQuery: 500, wantAggressive: true,
		},
		{
			name: "conservative when target is light",
			queries: 10, target: 1000, estimate: 500,
			wantStrategy: DistributionConservative, wantQueries: 10, wantPerQuery: 100,
		},
		{
			name: "balanced in between",
			queries: 10, target: 5000, estimate: 500,
			wantStrategy: DistributionBalanced, wantQueries: 10, wantPerQuery: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanQueryDistribution(tt.queries, tt.target, tt.estimate)
			if got.Strategy != tt.wantStrategy {
				t.Errorf("strategy = %q, want %q", got.Strategy, tt.wantStrategy)
			}
			if got.RecommendedQueries != tt.wantQueries {
				t.Errorf("recommended queries = %d, want %d", got.RecommendedQueries, tt.wantQueries)
			}
			if got.PerQueryTarget != tt.wantPerQuery {
				t.Errorf("per-query target = %d, want %d", got.PerQueryTarget, tt.wantPerQuery)
			}
			if got.Aggressive != tt.wantAggressive {
				t.Errorf("aggressive = %v, want %v", got.Aggressive, tt.wantAggressive)
			}
		})
	}
}

func TestShouldTerminateEarly(t *testing.T) {
	stop, reason := ShouldTerminateEarly(100, 200, 1000)
	if !stop {
		t.Error("expected stop when max possible is under 70% of target")
	}
	if !strings.Contains(reason, "mathematical limit") {
		t.Errorf("unexpected reason: %q", reason)
	}

	stop, reason = ShouldTerminateEarly(950, 0, 1000)
	if !stop {
		t.Error("expected stop within 90% of target")
	}
	if !strings.Contains(reason, "close enough") {
		t.Errorf("unexpected reason: %q", reason)
	}

	stop, _ = ShouldTerminateEarly(500, 600, 1000)
	if stop {
		t.Error("should continue while the target is still reachable")
	}
}

func TestProfileForTarget(t *testing.T) {
	tests := []struct {
		target      int
		wantMode    ProcessingMode
		wantQueries int
	}{
		{target: 500, wantMode: ModeFast, wantQueries: 5},
		{target: 1000, wantMode: ModeFast, wantQueries: 5},
		{target: 5000, wantMode: ModeBalanced, wantQueries: 10},
		{target: 50000, wantMode: ModeComprehensive, wantQueries: 20},
		{target: 100000, wantMode: ModeMaximum, wantQueries: 30},
	}

	for _, tt := range tests {
		got := ProfileForTarget(tt.target)
		if got.Mode != tt.wantMode || got.QueryVariations != tt.wantQueries {
			t.Errorf("ProfileForTarget(%d) = %q/%d, want %q/%d",
				tt.target, got.Mode, got.QueryVariations, tt.wantMode, tt.wantQueries)
		}
		if len(got.Sources) == 0 {
			t.Errorf("ProfileForTarget(%d) has no sources", tt.target)
		}
	}
}
