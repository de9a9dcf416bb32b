package insights_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitsignal/splitsignal/internal/insights"
	"github.com/splitsignal/splitsignal/internal/store"
)

func record(platform string, confidence float64, createdAt time.Time,
	winnerContent string, winnerRate float64,
	loserContent string, loserRate float64) insights.TestRecord {
	return insights.TestRecord{
		TestID:          "t-" + platform + createdAt.Format("0102"),
		Platform:        platform,
		Status:          store.StatusCompleted,
		ConfidenceLevel: confidence,
		CreatedAt:       createdAt,
		Winner:          &insights.VariantSnapshot{Content: winnerContent, EngagementRate: winnerRate},
		Loser:           &insights.VariantSnapshot{Content: loserContent, EngagementRate: loserRate},
	}
}

func TestGenerateHistoryInsights_EmptyHistory(t *testing.T) {
	report := insights.GenerateHistoryInsights(nil)

	assert.Equal(t, 0, report.TotalTests)
	assert.Equal(t, 0, report.CompletedTests)

	// Arrays, not nulls.
	assert.NotNil(t, report.PlatformPerformance)
	assert.NotNil(t, report.WinningElements)
	assert.NotNil(t, report.LosingElements)
	assert.NotNil(t, report.HistoricalInsights)
	assert.Empty(t, report.PlatformPerformance)
	assert.Empty(t, report.WinningElements)

	// Exactly one recommendation: start testing.
	require.Len(t, report.Recommendations, 1)
	assert.Equal(t, insights.PriorityHigh, report.Recommendations[0].Priority)
	assert.Contains(t, report.Recommendations[0].Title, "first A/B test")
}

func TestGenerateHistoryInsights_OnlyUnfinishedTests(t *testing.T) {
	records := []insights.TestRecord{
		{TestID: "t1", Platform: "twitter", Status: store.StatusActive, CreatedAt: time.Now()},
		{TestID: "t2", Platform: "twitter", Status: store.StatusCancelled, CreatedAt: time.Now()},
	}

	report := insights.GenerateHistoryInsights(records)

	assert.Equal(t, 2, report.TotalTests)
	assert.Equal(t, 0, report.CompletedTests)
	require.Len(t, report.Recommendations, 1)
	assert.Equal(t, insights.PriorityHigh, report.Recommendations[0].Priority)
}

func TestGenerateHistoryInsights_RepeatedWinningPattern(t *testing.T) {
	// Two linkedin tests where the winner used a hashtag and the loser
	// didn't: the aggregator must count that pattern twice.
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []insights.TestRecord{
		record("linkedin", 96, day,
			"Shipping our new release today #launch", 8, // lift 100%
			"Shipping our new release today", 4),
		record("linkedin", 97, day.AddDate(0, 0, 7),
			"Lessons from a year of testing #growth", 6, // lift 50%
			"Lessons from a year of testing", 4),
	}

	report := insights.GenerateHistoryInsights(records)

	assert.Equal(t, 2, report.CompletedTests)
	assert.InDelta(t, 96.5, report.AvgConfidenceLevel, 0.001)

	require.NotEmpty(t, report.WinningElements)
	top := report.WinningElements[0]
	assert.Equal(t, "Hashtags (1)", top.Element)
	assert.Equal(t, 2, top.Frequency)
	assert.InDelta(t, 75, top.AvgLift, 0.001) // (100 + 50) / 2
	assert.Equal(t, "+75.0% avg lift", top.Impact)
}

func TestGenerateHistoryInsights_LiftGuardsZeroLoserRate(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []insights.TestRecord{
		record("twitter", 95, day, "Winner text #go", 5, "Loser text", 0),
	}

	report := insights.GenerateHistoryInsights(records)

	require.Len(t, report.PlatformPerformance, 1)
	assert.Equal(t, 0.0, report.PlatformPerformance[0].AvgEngagementLift)
}

func TestGenerateHistoryInsights_PlatformSelection(t *testing.T) {
	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	records := []insights.TestRecord{
		// twitter: 2 tests, avg lift 25%
		record("twitter", 95, day, "a? #x", 5, "a", 4),
		record("twitter", 95, day.AddDate(0, 0, 1), "b? #x", 5, "b", 4),
		// linkedin: 1 test, lift 100%
		record("linkedin", 95, day.AddDate(0, 0, 2), "c? #x", 8, "c", 4),
	}

	report := insights.GenerateHistoryInsights(records)

	assert.Equal(t, "twitter", report.MostTestedPlatform)
	assert.Equal(t, "linkedin", report.BestPerformingPlatform)

	require.Len(t, report.PlatformPerformance, 2)
	assert.Equal(t, "twitter", report.PlatformPerformance[0].Platform)
	assert.Equal(t, 2, report.PlatformPerformance[0].TestsCompleted)
}

func TestGenerateHistoryInsights_TieBreaksFirstSeen(t *testing.T) {
	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	records := []insights.TestRecord{
		record("instagram", 95, day, "a #x", 6, "a", 4),
		record("twitter", 95, day.AddDate(0, 0, 1), "b #x", 6, "b", 4),
	}

	report := insights.GenerateHistoryInsights(records)

	// Same counts and same lift on both platforms: first seen wins.
	assert.Equal(t, "instagram", report.MostTestedPlatform)
	assert.Equal(t, "instagram", report.BestPerformingPlatform)
}

func TestGenerateHistoryInsights_RecommendationOrdering(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []insights.TestRecord{
		record("twitter", 95, day, "win #x", 6, "lose https://example.com/a", 4),
		record("twitter", 95, day.AddDate(0, 6, 0), "win #x", 6, "lose https://example.com/b", 4),
	}

	report := insights.GenerateHistoryInsights(records)

	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, insights.PriorityHigh, report.Recommendations[0].Priority)

	// Priorities never go back up: high, then medium, then low.
	rank := map[insights.Priority]int{
		insights.PriorityHigh:   0,
		insights.PriorityMedium: 1,
		insights.PriorityLow:    2,
	}
	for i := 1; i < len(report.Recommendations); i++ {
		assert.GreaterOrEqual(t,
			rank[report.Recommendations[i].Priority],
			rank[report.Recommendations[i-1].Priority])
	}

	// Six months for two tests is a slow cadence.
	last := report.Recommendations[len(report.Recommendations)-1]
	assert.Equal(t, insights.PriorityLow, last.Priority)
	assert.Equal(t, "Test more often", last.Title)
}

func TestGenerateHistoryInsights_ElementConfidenceThresholds(t *testing.T) {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Pattern seen twice: medium confidence.
	records := []insights.TestRecord{
		record("twitter", 95, day, "a #x", 6, "a", 4),
		record("twitter", 95, day.AddDate(0, 0, 1), "b #x", 6, "b", 4),
	}
	report := insights.GenerateHistoryInsights(records)
	require.NotEmpty(t, report.HistoricalInsights)
	assert.Equal(t, insights.ConfidenceMedium, report.HistoricalInsights[0].Confidence)

	// Seen a third time: high confidence.
	records = append(records, record("twitter", 95, day.AddDate(0, 0, 2), "c #x", 6, "c", 4))
	report = insights.GenerateHistoryInsights(records)
	assert.Equal(t, insights.ConfidenceHigh, report.HistoricalInsights[0].Confidence)
}

func TestGenerateHistoryInsights_PlatformInsightAndTrend(t *testing.T) {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var records []insights.TestRecord
	for i := 0; i < 5; i++ {
		records = append(records, record("linkedin", 96, day.AddDate(0, 0, i),
			"post #x", 6, "post", 4)) // 50% lift each
	}

	report := insights.GenerateHistoryInsights(records)

	var platformInsight *insights.Insight
	for i := range report.HistoricalInsights {
		if report.HistoricalInsights[i].Category == "platform" {
			platformInsight = &report.HistoricalInsights[i]
			break
		}
	}
	require.NotNil(t, platformInsight, "expected a platform insight at 5 completed tests")
	assert.Equal(t, insights.ConfidenceHigh, platformInsight.Confidence)
	assert.Equal(t, insights.TrendImproving, platformInsight.Trend)

	// And a strategy nod for the high average confidence.
	var strategy *insights.Insight
	for i := range report.HistoricalInsights {
		if report.HistoricalInsights[i].Category == "strategy" {
			strategy = &report.HistoricalInsights[i]
			break
		}
	}
	require.NotNil(t, strategy)
	assert.Contains(t, strategy.Title, "High-confidence")
}

func TestGenerateHistoryInsights_TimeAnalysis(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []insights.TestRecord{
		record("twitter", 95, day, "a #x", 6, "a", 4),
		record("twitter", 95, day.AddDate(0, 2, 0), "b #x", 6, "b", 4),
	}

	report := insights.GenerateHistoryInsights(records)

	assert.InDelta(t, 2.0, report.TimeAnalysis.MonthsSpanned, 0.1)
	assert.InDelta(t, 1.0, report.TimeAnalysis.TestFrequency, 0.1)
	require.NotNil(t, report.TimeAnalysis.FirstTestAt)
	assert.True(t, report.TimeAnalysis.FirstTestAt.Equal(day))
}

func TestRecordFromTest(t *testing.T) {
	winnerID := "v1"
	confidence := 97.5
	test := &store.Test{
		ID:               "t1",
		Platform:         "linkedin",
		Status:           store.StatusCompleted,
		WinningVariantID: &winnerID,
		ConfidenceLevel:  &confidence,
		CreatedAt:        time.Now(),
	}
	variants := []store.Variant{
		{ID: "v1", TestID: "t1", Label: "A", Content: "winner #x", Impressions: 100, Engagements: 8},
		{ID: "v2", TestID: "t1", Label: "B", Content: "loser", Impressions: 100, Engagements: 4},
	}

	rec, ok := insights.RecordFromTest(test, variants)
	require.True(t, ok)
	assert.Equal(t, 97.5, rec.ConfidenceLevel)
	assert.Equal(t, "winner #x", rec.Winner.Content)
	assert.Equal(t, 4.0, rec.Loser.EngagementRate)

	// A draft test resolves but does not qualify.
	draft := &store.Test{ID: "t2", Status: store.StatusDraft}
	_, ok = insights.RecordFromTest(draft, nil)
	assert.False(t, ok)
}

func TestRecordFromTest_PicksBestLoser(t *testing.T) {
	winnerID := "v2"
	test := &store.Test{
		ID:               "t1",
		Platform:         "twitter",
		Status:           store.StatusCompleted,
		WinningVariantID: &winnerID,
		CreatedAt:        time.Now(),
	}
	variants := []store.Variant{
		{ID: "v1", Label: "A", Content: "weak", Impressions: 100, Engagements: 1},
		{ID: "v2", Label: "B", Content: "winner", Impressions: 100, Engagements: 9},
		{ID: "v3", Label: "C", Content: "runner-up", Impressions: 100, Engagements: 5},
	}

	rec, ok := insights.RecordFromTest(test, variants)
	require.True(t, ok)
	assert.Equal(t, "runner-up", rec.Loser.Content)
}
