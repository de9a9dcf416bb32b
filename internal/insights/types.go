// Package insights aggregates a user's completed test history into
// platform performance, winning/losing content patterns, and ranked
// recommendations. All aggregation is pure: callers supply resolved test
// records, the package returns values.
package insights

import (
	"time"

	"github.com/splitsignal/splitsignal/internal/store"
)

// ConfidenceLabel grades how much data backs an insight.
type ConfidenceLabel string

const (
	ConfidenceLow    ConfidenceLabel = "low"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceHigh   ConfidenceLabel = "high"
)

// Data-point thresholds behind ConfidenceLabel grading. One place, not
// per call site.
const (
	HighConfidenceDataPoints   = 5
	MediumConfidenceDataPoints = 3
)

// confidenceForDataPoints maps a sample count to a confidence label.
func confidenceForDataPoints(n int) ConfidenceLabel {
	switch {
	case n >= HighConfidenceDataPoints:
		return ConfidenceHigh
	case n >= MediumConfidenceDataPoints:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// VariantSnapshot is the resolved side of a finished comparison: the
// text that ran and the engagement rate it achieved.
type VariantSnapshot struct {
	Content        string  `json:"content"`
	EngagementRate float64 `json:"engagement_rate"` // percent
}

// TestRecord is one test from the user's history, with winner and loser
// resolved when the test completed with a decision. Fetching and
// resolving is the caller's job; aggregation stays pure.
type TestRecord struct {
	TestID          string           `json:"test_id"`
	Platform        string           `json:"platform"`
	Status          store.TestStatus `json:"status"`
	ConfidenceLevel float64          `json:"confidence_level"` // 0-100, 0 when unset
	CreatedAt       time.Time        `json:"created_at"`
	Winner          *VariantSnapshot `json:"winner,omitempty"`
	Loser           *VariantSnapshot `json:"loser,omitempty"`
}

// qualifies reports whether the record contributes to aggregation: a
// completed test with a resolved winner and loser.
func (r TestRecord) qualifies() bool {
	return r.Status == store.StatusCompleted && r.Winner != nil && r.Loser != nil
}

// lift is the winner's relative improvement over the loser, in percent.
// Contributes 0 when the loser rate is 0.
func (r TestRecord) lift() float64 {
	if r.Loser == nil || r.Winner == nil || r.Loser.EngagementRate == 0 {
		return 0
	}
	return (r.Winner.EngagementRate - r.Loser.EngagementRate) / r.Loser.EngagementRate * 100
}

// PlatformPerformance summarizes one platform's completed tests.
type PlatformPerformance struct {
	Platform          string  `json:"platform"`
	TestsCompleted    int     `json:"tests_completed"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgEngagementLift float64 `json:"avg_engagement_lift"`
}

// ContentElement is a content feature with how often it appeared on one
// side of a decision and the average lift of those tests.
type ContentElement struct {
	Element   string  `json:"element"`
	Frequency int     `json:"frequency"`
	AvgLift   float64 `json:"avg_lift"`
	Impact    string  `json:"impact"` // "+X.X% avg lift" / "-X.X% avg lift"
}

// Insight is one cross-test pattern worth surfacing.
type Insight struct {
	Category    string          `json:"category"` // "content", "platform", "strategy"
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Confidence  ConfidenceLabel `json:"confidence"`
	DataPoints  int             `json:"data_points"`
	Trend       Trend           `json:"trend,omitempty"`
}

// Recommendation is an actionable next step. Ordering by priority is
// part of the contract: high first.
type Recommendation struct {
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	BasedOn     string   `json:"based_on"`
}

// TimeAnalysis describes testing cadence over the history.
type TimeAnalysis struct {
	FirstTestAt   *time.Time `json:"first_test_at,omitempty"`
	LastTestAt    *time.Time `json:"last_test_at,omitempty"`
	MonthsSpanned float64    `json:"months_spanned"`
	TestFrequency float64    `json:"test_frequency"` // completed tests per month
}

// TestHistoryInsights is the full aggregation result. Slice fields are
// always non-nil; an empty history yields empty arrays plus the
// start-testing recommendation.
type TestHistoryInsights struct {
	TotalTests             int                   `json:"total_tests"`
	CompletedTests         int                   `json:"completed_tests"`
	AvgConfidenceLevel     float64               `json:"avg_confidence_level"`
	MostTestedPlatform     string                `json:"most_tested_platform"`
	BestPerformingPlatform string                `json:"best_performing_platform"`
	PlatformPerformance    []PlatformPerformance `json:"platform_performance"`
	WinningElements        []ContentElement      `json:"winning_elements"`
	LosingElements         []ContentElement      `json:"losing_elements"`
	HistoricalInsights     []Insight             `json:"historical_insights"`
	Recommendations        []Recommendation      `json:"recommendations"`
	TimeAnalysis           TimeAnalysis          `json:"time_analysis"`
}
