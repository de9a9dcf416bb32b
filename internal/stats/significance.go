package stats

import (
	"fmt"
	"math"

	"github.com/splitsignal/splitsignal/internal/store"
)

// Decision thresholds, in confidence percent. A variant is reported as
// the winner once the comparison clears WinnerThreshold; the result only
// counts as statistically significant at SignificanceThreshold.
const (
	MinimumSampleSize     = 30
	WinnerThreshold       = 80.0
	SignificanceThreshold = 95.0
)

// Result of comparing two variants' engagement proportions.
type Result struct {
	Confidence    float64 // 0-100, confidence the rates differ
	Winner        string  // "A", "B", or "" when no call can be made
	IsSignificant bool
}

// ValidateCounts rejects malformed trial/success pairs at the boundary.
// Calculate itself never errors; callers feeding it external input
// should validate first.
func ValidateCounts(trials, successes int) error {
	if trials < 0 {
		return fmt.Errorf("trials is negative (%d)", trials)
	}
	if successes < 0 {
		return fmt.Errorf("successes is negative (%d)", successes)
	}
	if successes > trials {
		return fmt.Errorf("successes (%d) exceed trials (%d)", successes, trials)
	}
	return nil
}

// Calculate performs a pooled two-proportion z-test between variant A
// (trialsA, successesA) and variant B (trialsB, successesB), returning a
// two-sided confidence percentage that the underlying rates differ.
//
// Degenerate inputs (no trials on either side, no successes anywhere, or
// both samples under MinimumSampleSize) yield the zero Result rather
// than an error. Equal observed rates yield no winner regardless of
// sample size.
//
// Pure: deterministic for identical inputs, no I/O.
func Calculate(trialsA, successesA, trialsB, successesB int) Result {
	if trialsA <= 0 || trialsB <= 0 {
		return Result{}
	}
	if successesA == 0 && successesB == 0 {
		return Result{}
	}
	if trialsA < MinimumSampleSize && trialsB < MinimumSampleSize {
		return Result{}
	}

	pA := float64(successesA) / float64(trialsA)
	pB := float64(successesB) / float64(trialsB)

	if pA == pB {
		return Result{}
	}

	// Pooled proportion under the null hypothesis (pA = pB)
	pooled := float64(successesA+successesB) / float64(trialsA+trialsB)

	// Standard error of the difference
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(trialsA) + 1/float64(trialsB)))
	if se == 0 {
		return Result{}
	}

	z := (pA - pB) / se

	// Two-sided: confidence the rates differ at all, not just A > B.
	confidence := (2*normalCDF(math.Abs(z)) - 1) * 100
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	bothSampled := trialsA >= MinimumSampleSize && trialsB >= MinimumSampleSize

	result := Result{
		Confidence:    confidence,
		IsSignificant: confidence >= SignificanceThreshold && bothSampled,
	}

	if confidence >= WinnerThreshold && bothSampled {
		if pA > pB {
			result.Winner = "A"
		} else {
			result.Winner = "B"
		}
	}

	return result
}

// normalCDF approximates the cumulative distribution function of the
// standard normal distribution using Abramowitz and Stegun formula
// 7.1.26.
func normalCDF(x float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// VariantSummary contains display statistics for a single variant.
type VariantSummary struct {
	Label       string
	Content     string
	Impressions int
	Engagements int
	Rate        float64 // percent
	CILower     float64 // percent
	CIUpper     float64 // percent
}

// Summary is the full statistical picture of one test, for results
// output.
type Summary struct {
	Variants        []VariantSummary
	Leading         int     // index into Variants
	ConfidenceLevel float64 // 0-100, leader vs best challenger
	Significant     bool
}

// Summarize computes per-variant rates with Wilson 95% intervals and the
// pairwise confidence between the two leading variants.
func Summarize(variants []store.Variant) *Summary {
	summaries := make([]VariantSummary, len(variants))
	leading := 0
	maxRate := -1.0

	for i, v := range variants {
		lower, upper := WilsonInterval(v.Engagements, v.Impressions, 0.95)
		summaries[i] = VariantSummary{
			Label:       v.Label,
			Content:     v.Content,
			Impressions: v.Impressions,
			Engagements: v.Engagements,
			Rate:        v.EngagementRate(),
			CILower:     lower * 100,
			CIUpper:     upper * 100,
		}
		if summaries[i].Rate > maxRate {
			maxRate = summaries[i].Rate
			leading = i
		}
	}

	summary := &Summary{Variants: summaries, Leading: leading}

	if len(variants) >= 2 {
		challenger := bestChallenger(variants, leading)
		r := Calculate(
			variants[leading].Impressions, variants[leading].Engagements,
			variants[challenger].Impressions, variants[challenger].Engagements,
		)
		summary.ConfidenceLevel = r.Confidence
		summary.Significant = r.IsSignificant
	}

	return summary
}

// bestChallenger returns the index of the highest-rate variant other
// than the leader.
func bestChallenger(variants []store.Variant, leading int) int {
	challenger := 0
	if leading == 0 {
		challenger = 1
	}
	bestRate := -1.0
	for i, v := range variants {
		if i == leading {
			continue
		}
		if rate := v.EngagementRate(); rate > bestRate {
			bestRate = rate
			challenger = i
		}
	}
	return challenger
}
