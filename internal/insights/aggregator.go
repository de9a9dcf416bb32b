package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/splitsignal/splitsignal/internal/content"
	"github.com/splitsignal/splitsignal/internal/store"
)

const (
	// Element lists are capped to the strongest signals.
	topElementCount = 10

	// Content-element insight grading: seeing the same pattern win (or
	// lose) this many times.
	elementHighFrequency   = 3
	elementMediumFrequency = 2

	// A platform earns its own insight entry once it has this many
	// completed tests.
	platformInsightMinTests = 3

	// Trend bands on average engagement lift, in percent.
	trendImprovingLift = 10.0

	// Strategy bands on average confidence level.
	strategyPraiseConfidence = 90.0
	strategyAdviseConfidence = 80.0

	lowCadenceTestsPerMonth = 2.0
	monthDuration           = 30 * 24 * time.Hour
)

// RecordFromTest resolves a stored test and its variants into a
// TestRecord. The loser is the highest-rate variant that did not win.
// ok is false when the test has no usable winner/loser pair; such tests
// still count toward totals but contribute no patterns.
func RecordFromTest(t *store.Test, variants []store.Variant) (TestRecord, bool) {
	record := TestRecord{
		TestID:    t.ID,
		Platform:  t.Platform,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
	if t.ConfidenceLevel != nil {
		record.ConfidenceLevel = *t.ConfidenceLevel
	}

	if t.Status != store.StatusCompleted || t.WinningVariantID == nil {
		return record, false
	}

	var winner *store.Variant
	var loser *store.Variant
	for i := range variants {
		v := &variants[i]
		if v.ID == *t.WinningVariantID {
			winner = v
			continue
		}
		if loser == nil || v.EngagementRate() > loser.EngagementRate() {
			loser = v
		}
	}
	if winner == nil || loser == nil {
		return record, false
	}

	record.Winner = &VariantSnapshot{Content: winner.Content, EngagementRate: winner.EngagementRate()}
	record.Loser = &VariantSnapshot{Content: loser.Content, EngagementRate: loser.EngagementRate()}
	return record, true
}

// GenerateHistoryInsights aggregates a user's full test history into
// ranked insights and recommendations. Pure: identical input yields
// identical output, with platform tie-breaks resolving to first-seen
// input order.
func GenerateHistoryInsights(records []TestRecord) TestHistoryInsights {
	out := TestHistoryInsights{
		TotalTests:          len(records),
		PlatformPerformance: []PlatformPerformance{},
		WinningElements:     []ContentElement{},
		LosingElements:      []ContentElement{},
		HistoricalInsights:  []Insight{},
		Recommendations:     []Recommendation{},
	}

	var qualified []TestRecord
	for _, r := range records {
		if r.qualifies() {
			qualified = append(qualified, r)
		}
	}

	if len(qualified) == 0 {
		out.Recommendations = append(out.Recommendations, Recommendation{
			Priority:    PriorityHigh,
			Title:       "Run your first A/B test",
			Description: "You have no completed tests with a winner yet. Run a test with two content variants to start learning what works for your audience.",
			BasedOn:     "0 completed tests",
		})
		return out
	}

	out.CompletedTests = len(qualified)

	var confidenceSum float64
	for _, r := range qualified {
		confidenceSum += r.ConfidenceLevel
	}
	out.AvgConfidenceLevel = confidenceSum / float64(len(qualified))

	out.PlatformPerformance = platformPerformance(qualified)
	out.MostTestedPlatform, out.BestPerformingPlatform = pickPlatforms(out.PlatformPerformance)
	out.WinningElements, out.LosingElements = contentElements(qualified)
	out.TimeAnalysis = timeAnalysis(qualified)
	out.HistoricalInsights = deriveInsights(&out)
	out.Recommendations = deriveRecommendations(&out)

	return out
}

// platformPerformance groups qualifying tests by platform, preserving
// first-seen order so downstream tie-breaks are deterministic.
func platformPerformance(qualified []TestRecord) []PlatformPerformance {
	type acc struct {
		tests      int
		confidence float64
		lift       float64
	}

	var order []string
	groups := make(map[string]*acc)
	for _, r := range qualified {
		g, ok := groups[r.Platform]
		if !ok {
			g = &acc{}
			groups[r.Platform] = g
			order = append(order, r.Platform)
		}
		g.tests++
		g.confidence += r.ConfidenceLevel
		g.lift += r.lift()
	}

	perf := make([]PlatformPerformance, 0, len(order))
	for _, platform := range order {
		g := groups[platform]
		perf = append(perf, PlatformPerformance{
			Platform:          platform,
			TestsCompleted:    g.tests,
			AvgConfidence:     g.confidence / float64(g.tests),
			AvgEngagementLift: g.lift / float64(g.tests),
		})
	}
	return perf
}

// pickPlatforms selects the most-tested and best-performing platforms.
// Ties go to the platform seen first in input order.
func pickPlatforms(perf []PlatformPerformance) (mostTested, bestPerforming string) {
	if len(perf) == 0 {
		return "", ""
	}
	most := perf[0]
	best := perf[0]
	for _, p := range perf[1:] {
		if p.TestsCompleted > most.TestsCompleted {
			most = p
		}
		if p.AvgEngagementLift > best.AvgEngagementLift {
			best = p
		}
	}
	return most.Platform, best.Platform
}

// contentElements counts features unique to winners and features unique
// to losers across all qualifying tests, each with the accumulated lift
// of the tests it appeared in.
func contentElements(qualified []TestRecord) (winning, losing []ContentElement) {
	winCounts := make(map[string]*counter)
	loseCounts := make(map[string]*counter)

	for _, r := range qualified {
		winnerTags := tagSet(content.ExtractFeatures(r.Winner.Content))
		loserTags := tagSet(content.ExtractFeatures(r.Loser.Content))
		lift := r.lift()

		for tag := range winnerTags {
			if _, shared := loserTags[tag]; shared {
				continue
			}
			bump(winCounts, tag, lift)
		}
		for tag := range loserTags {
			if _, shared := winnerTags[tag]; shared {
				continue
			}
			bump(loseCounts, tag, lift)
		}
	}

	winning = rankElements(winCounts, "+")
	losing = rankElements(loseCounts, "-")
	return winning, losing
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

func bump(counts map[string]*counter, tag string, lift float64) {
	c, ok := counts[tag]
	if !ok {
		c = &counter{}
		counts[tag] = c
	}
	c.frequency++
	c.totalLift += lift
}

type counter struct {
	frequency int
	totalLift float64
}

// rankElements sorts by frequency descending (element name breaks ties
// for stable output) and keeps the top entries.
func rankElements(counts map[string]*counter, sign string) []ContentElement {
	elements := make([]ContentElement, 0, len(counts))
	for tag, c := range counts {
		avgLift := c.totalLift / float64(c.frequency)
		elements = append(elements, ContentElement{
			Element:   tag,
			Frequency: c.frequency,
			AvgLift:   avgLift,
			Impact:    fmt.Sprintf("%s%.1f%% avg lift", sign, avgLift),
		})
	}

	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Frequency != elements[j].Frequency {
			return elements[i].Frequency > elements[j].Frequency
		}
		return elements[i].Element < elements[j].Element
	})

	if len(elements) > topElementCount {
		elements = elements[:topElementCount]
	}
	return elements
}

func timeAnalysis(qualified []TestRecord) TimeAnalysis {
	first := qualified[0].CreatedAt
	last := qualified[0].CreatedAt
	for _, r := range qualified[1:] {
		if r.CreatedAt.Before(first) {
			first = r.CreatedAt
		}
		if r.CreatedAt.After(last) {
			last = r.CreatedAt
		}
	}

	months := float64(last.Sub(first)) / float64(monthDuration)
	divisor := months
	if divisor < 1 {
		divisor = 1
	}

	return TimeAnalysis{
		FirstTestAt:   &first,
		LastTestAt:    &last,
		MonthsSpanned: months,
		TestFrequency: float64(len(qualified)) / divisor,
	}
}

func deriveInsights(h *TestHistoryInsights) []Insight {
	insights := []Insight{}

	if len(h.WinningElements) > 0 {
		top := h.WinningElements[0]
		insights = append(insights, Insight{
			Category: "content",
			Title:    fmt.Sprintf("Winning pattern: %s", top.Element),
			Description: fmt.Sprintf("Content with %s won %d test(s) with an average lift of %.1f%%.",
				top.Element, top.Frequency, top.AvgLift),
			Confidence: elementConfidence(top.Frequency),
			DataPoints: top.Frequency,
		})
	}

	if len(h.LosingElements) > 0 {
		top := h.LosingElements[0]
		insights = append(insights, Insight{
			Category: "content",
			Title:    fmt.Sprintf("Losing pattern: %s", top.Element),
			Description: fmt.Sprintf("Content with %s lost %d test(s); winning variants averaged %.1f%% more engagement.",
				top.Element, top.Frequency, top.AvgLift),
			Confidence: elementConfidence(top.Frequency),
			DataPoints: top.Frequency,
		})
	}

	for _, p := range h.PlatformPerformance {
		if p.TestsCompleted < platformInsightMinTests {
			continue
		}
		confidence := ConfidenceMedium
		if p.TestsCompleted >= HighConfidenceDataPoints {
			confidence = ConfidenceHigh
		}
		insights = append(insights, Insight{
			Category: "platform",
			Title:    fmt.Sprintf("%s performance", p.Platform),
			Description: fmt.Sprintf("%d completed tests on %s averaging %.1f%% engagement lift at %.1f%% confidence.",
				p.TestsCompleted, p.Platform, p.AvgEngagementLift, p.AvgConfidence),
			Confidence: confidence,
			DataPoints: p.TestsCompleted,
			Trend:      liftTrend(p.AvgEngagementLift),
		})
	}

	switch {
	case h.AvgConfidenceLevel > strategyPraiseConfidence:
		insights = append(insights, Insight{
			Category: "strategy",
			Title:    "High-confidence testing",
			Description: fmt.Sprintf("Your tests conclude at %.1f%% average confidence. Decisions this solid are worth acting on quickly.",
				h.AvgConfidenceLevel),
			Confidence: confidenceForDataPoints(h.CompletedTests),
			DataPoints: h.CompletedTests,
		})
	case h.AvgConfidenceLevel < strategyAdviseConfidence:
		insights = append(insights, Insight{
			Category: "strategy",
			Title:    "Tests end with low confidence",
			Description: fmt.Sprintf("Your tests conclude at %.1f%% average confidence. Run tests longer or with larger audiences before deciding.",
				h.AvgConfidenceLevel),
			Confidence: confidenceForDataPoints(h.CompletedTests),
			DataPoints: h.CompletedTests,
		})
	}

	return insights
}

func elementConfidence(frequency int) ConfidenceLabel {
	switch {
	case frequency >= elementHighFrequency:
		return ConfidenceHigh
	case frequency >= elementMediumFrequency:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func liftTrend(avgLift float64) Trend {
	switch {
	case avgLift > trendImprovingLift:
		return TrendImproving
	case avgLift > 0:
		return TrendStable
	default:
		return TrendDeclining
	}
}

// deriveRecommendations builds the priority-ordered action list: high
// first, and never empty when any qualifying test exists.
func deriveRecommendations(h *TestHistoryInsights) []Recommendation {
	recs := []Recommendation{}

	if len(h.WinningElements) > 0 {
		top := h.WinningElements[0]
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Title:    fmt.Sprintf("Replicate your winning pattern: %s", top.Element),
			Description: fmt.Sprintf("This pattern appeared in %d winning variant(s) with %s. Use it in your next posts.",
				top.Frequency, top.Impact),
			BasedOn: fmt.Sprintf("%d completed tests", h.CompletedTests),
		})
	}

	if len(h.LosingElements) > 0 {
		top := h.LosingElements[0]
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Title:    fmt.Sprintf("Avoid: %s", top.Element),
			Description: fmt.Sprintf("This pattern appeared in %d losing variant(s) (%s). Drop it unless a new test says otherwise.",
				top.Frequency, top.Impact),
			BasedOn: fmt.Sprintf("%d completed tests", h.CompletedTests),
		})
	}

	if h.BestPerformingPlatform != "" {
		patterns := make([]string, 0, 3)
		for i, e := range h.WinningElements {
			if i == 3 {
				break
			}
			patterns = append(patterns, e.Element)
		}
		description := fmt.Sprintf("%s shows your highest average engagement lift.", h.BestPerformingPlatform)
		if len(patterns) > 0 {
			description += fmt.Sprintf(" Lean on your top winning patterns there: %s.", strings.Join(patterns, ", "))
		}
		recs = append(recs, Recommendation{
			Priority:    PriorityMedium,
			Title:       fmt.Sprintf("Double down on %s", h.BestPerformingPlatform),
			Description: description,
			BasedOn:     "platform performance comparison",
		})
	}

	if h.TimeAnalysis.TestFrequency < lowCadenceTestsPerMonth {
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Title:    "Test more often",
			Description: fmt.Sprintf("You complete %.1f tests per month. Aim for at least %.0f to keep learning what works.",
				h.TimeAnalysis.TestFrequency, lowCadenceTestsPerMonth),
			BasedOn: "testing cadence",
		})
	}

	return recs
}
