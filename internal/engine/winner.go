// Package engine turns raw variant counts into decisions: which variant
// won a test, and whether a running test has enough signal to complete
// itself. All decision functions return value results; insufficient
// data and invalid state are reasons, not errors.
package engine

import (
	"fmt"

	"github.com/splitsignal/splitsignal/internal/stats"
	"github.com/splitsignal/splitsignal/internal/store"
)

// Decision is the outcome of analyzing a test's variants. WinnerID is
// empty when no winner can be called yet; Recommendation is user-facing
// text explaining the state with real numbers.
type Decision struct {
	WinnerID       string  `json:"winner_id"`
	WinnerLabel    string  `json:"winner_label"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

// DetermineWinner compares the test's variants and produces a decision
// plus a human-readable recommendation. With more than two variants, the
// two highest engagement rates are compared pairwise (leader vs best
// challenger); the rest cannot have won.
//
// Errors only on boundary misuse (fewer than two variants). Persisting
// the decision onto the test is the caller's job.
func DetermineWinner(variants []store.Variant) (Decision, error) {
	if len(variants) < 2 {
		return Decision{}, fmt.Errorf("need at least 2 variants to determine a winner, got %d", len(variants))
	}

	lead, challenger := topTwo(variants)
	leader := variants[lead]
	runnerUp := variants[challenger]

	result := stats.Calculate(
		leader.Impressions, leader.Engagements,
		runnerUp.Impressions, runnerUp.Engagements,
	)

	decision := Decision{Confidence: result.Confidence}

	switch {
	case result.Winner == "":
		if result.Confidence == 0 {
			decision.Recommendation = fmt.Sprintf(
				"Not enough data yet: variant %s has %d impressions and variant %s has %d. Results are not statistically significant yet; keep the test running.",
				leader.Label, leader.Impressions, runnerUp.Label, runnerUp.Impressions)
		} else {
			decision.Recommendation = fmt.Sprintf(
				"Results are not statistically significant yet (%.1f%% confidence). Keep the test running to gather more data.",
				result.Confidence)
		}

	case !result.IsSignificant:
		winner := pickWinner(result.Winner, leader, runnerUp)
		decision.WinnerID = winner.ID
		decision.WinnerLabel = winner.Label
		decision.Recommendation = fmt.Sprintf(
			"Variant %s is leading with a %.1f%% engagement rate at %.1f%% confidence. Wait for %.0f%% confidence before declaring a winner.",
			winner.Label, winner.EngagementRate(), result.Confidence, stats.SignificanceThreshold)

	default:
		winner := pickWinner(result.Winner, leader, runnerUp)
		decision.WinnerID = winner.ID
		decision.WinnerLabel = winner.Label
		decision.Recommendation = fmt.Sprintf(
			"Clear winner: variant %s with a %.1f%% engagement rate (%.1f%% confidence).",
			winner.Label, winner.EngagementRate(), result.Confidence)
	}

	return decision, nil
}

// pickWinner maps the calculator's positional labels back to the
// variants that were compared: "A" was the first argument pair, "B" the
// second.
func pickWinner(label string, a, b store.Variant) store.Variant {
	if label == "A" {
		return a
	}
	return b
}

// topTwo returns the indices of the two variants with the highest
// engagement rates, leader first. Ties resolve to the earlier variant.
func topTwo(variants []store.Variant) (lead, challenger int) {
	lead = 0
	for i := 1; i < len(variants); i++ {
		if variants[i].EngagementRate() > variants[lead].EngagementRate() {
			lead = i
		}
	}

	challenger = -1
	for i := range variants {
		if i == lead {
			continue
		}
		if challenger == -1 || variants[i].EngagementRate() > variants[challenger].EngagementRate() {
			challenger = i
		}
	}
	return lead, challenger
}
