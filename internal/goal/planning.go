package goal

import "fmt"

// DistributionStrategy names the query-count plan for a run.
type DistributionStrategy string

const (
	// DistributionScaleUp means the query list is too small for the
	// target and should grow.
	DistributionScaleUp DistributionStrategy = "SCALE_UP_QUERIES"
	// DistributionConservative means the target is comfortably covered.
	DistributionConservative DistributionStrategy = "CONSERVATIVE"
	// DistributionBalanced means the plan matches the estimate.
	DistributionBalanced DistributionStrategy = "BALANCED"
)

// QueryDistribution is a sizing plan: how many queries to run and what
// each should be expected to yield.
type QueryDistribution struct {
	RecommendedQueries int                  `json:"recommended_queries"`
	PerQueryTarget     int                  `json:"per_query_target"`
	Aggressive         bool                 `json:"aggressive"`
	Strategy           DistributionStrategy `json:"strategy"`
}

// PlanQueryDistribution sizes the query list against the target.
// estimatedPerQuery is the expected yield of one query; non-positive
// values fall back to 500.
func PlanQueryDistribution(totalQueries, targetComments, estimatedPerQuery int) QueryDistribution {
	if totalQueries <= 0 {
		totalQueries = 1
	}
	if estimatedPerQuery <= 0 {
		estimatedPerQuery = 500
	}

	needed := (targetComments + totalQueries - 1) / totalQueries

	if needed > estimatedPerQuery*2 {
		suggested := (targetComments + estimatedPerQuery - 1) / estimatedPerQuery
		if limit := totalQueries * 2; suggested > limit {
			suggested = limit
		}
		return QueryDistribution{
			RecommendedQueries: suggested,
			PerQueryTarget:     estimatedPerQuery,
			Aggressive:         true,
			Strategy:           DistributionScaleUp,
		}
	}
	if float64(needed) < float64(estimatedPerQuery)*0.5 {
		return QueryDistribution{
			RecommendedQueries: totalQueries,
			PerQueryTarget:     needed,
			Strategy:           DistributionConservative,
		}
	}
	return QueryDistribution{
		RecommendedQueries: totalQueries,
		PerQueryTarget:     needed,
		Strategy:           DistributionBalanced,
	}
}

// ShouldTerminateEarly decides whether continuing the run can still be
// worthwhile. achieved is the count collected so far and
// estimatedMaxRemaining the most the remaining queries could plausibly
// add. The returned reason is for reporting, not machine consumption.
func ShouldTerminateEarly(achieved, estimatedMaxRemaining, target int) (bool, string) {
	if target <= 0 {
		return false, "no target set"
	}

	maxPossible := achieved + estimatedMaxRemaining
	if float64(maxPossible) < float64(target)*0.7 {
		return true, fmt.Sprintf("mathematical limit reached: max possible %d, target %d", maxPossible, target)
	}
	if float64(achieved) >= float64(target)*0.9 {
		return true, fmt.Sprintf("close enough to target: %d/%d (90%%+)", achieved, target)
	}
	return false, "target still achievable"
}

// ProcessingMode labels how aggressively a run should be configured.
type ProcessingMode string

const (
	ModeFast          ProcessingMode = "FAST"
	ModeBalanced      ProcessingMode = "BALANCED"
	ModeComprehensive ProcessingMode = "COMPREHENSIVE"
	ModeMaximum       ProcessingMode = "MAXIMUM"
)

// RunProfile is a recommended run shape for a user-supplied target.
type RunProfile struct {
	QueryVariations int            `json:"query_variations"`
	Mode            ProcessingMode `json:"mode"`
	Sources         []string       `json:"sources"`
}

// ProfileForTarget sizes a run from the target alone: small targets get
// a single fast source, large ones get more variations and all sources.
func ProfileForTarget(target int) RunProfile {
	switch {
	case target <= 1000:
		return RunProfile{QueryVariations: 5, Mode: ModeFast, Sources: []string{"youtube"}}
	case target <= 10000:
		return RunProfile{QueryVariations: 10, Mode: ModeBalanced, Sources: []string{"youtube", "reddit"}}
	case target <= 50000:
		return RunProfile{QueryVariations: 20, Mode: ModeComprehensive, Sources: []string{"youtube", "reddit"}}
	default:
		return RunProfile{QueryVariations: 30, Mode: ModeMaximum, Sources: []string{"youtube", "reddit"}}
	}
}
