package stats_test

import (
	"testing"

	"github.com/splitsignal/splitsignal/internal/stats"
	"github.com/splitsignal/splitsignal/internal/store"
)

func TestCalculate_SampleTooSmall(t *testing.T) {
	// Both samples under the minimum floor: no call, no confidence.
	r := stats.Calculate(5, 2, 5, 3)

	if r.Confidence != 0 {
		t.Errorf("expected confidence 0, got %f", r.Confidence)
	}
	if r.Winner != "" {
		t.Errorf("expected no winner, got %q", r.Winner)
	}
	if r.IsSignificant {
		t.Error("expected not significant")
	}
}

func TestCalculate_ModerateWinner(t *testing.T) {
	// 30% vs 20% on 100 impressions each: A leads, but not at the
	// significance bar yet.
	r := stats.Calculate(100, 30, 100, 20)

	if r.Winner != "A" {
		t.Errorf("expected winner A, got %q", r.Winner)
	}
	if r.Confidence <= 0 {
		t.Errorf("expected positive confidence, got %f", r.Confidence)
	}
	if r.IsSignificant {
		t.Errorf("expected not significant at %f%% confidence", r.Confidence)
	}
}

func TestCalculate_ClearWinner(t *testing.T) {
	// 40% vs 20% on 500 impressions each: decisive.
	r := stats.Calculate(500, 200, 500, 100)

	if r.Winner != "A" {
		t.Errorf("expected winner A, got %q", r.Winner)
	}
	if !r.IsSignificant {
		t.Error("expected significant result")
	}
	if r.Confidence < 95 {
		t.Errorf("expected confidence >= 95, got %f", r.Confidence)
	}
}

func TestCalculate_EqualRates(t *testing.T) {
	r := stats.Calculate(100, 25, 100, 25)

	if r.Winner != "" {
		t.Errorf("expected no winner for equal rates, got %q", r.Winner)
	}
	if r.IsSignificant {
		t.Error("expected not significant for equal rates")
	}
}

func TestCalculate_EqualRatesLargeSample(t *testing.T) {
	// Equal rates must never produce a winner, however big the sample.
	r := stats.Calculate(1000000, 250000, 1000000, 250000)

	if r.Winner != "" {
		t.Errorf("expected no winner for equal rates, got %q", r.Winner)
	}
	if r.Confidence != 0 {
		t.Errorf("expected confidence 0 for equal rates, got %f", r.Confidence)
	}
}

func TestCalculate_ZeroSuccesses(t *testing.T) {
	r := stats.Calculate(500, 0, 500, 0)

	if r.Confidence != 0 || r.Winner != "" || r.IsSignificant {
		t.Errorf("expected zero result for zero successes, got %+v", r)
	}
}

func TestCalculate_ZeroTrials(t *testing.T) {
	cases := [][4]int{
		{0, 0, 0, 0},
		{0, 0, 100, 10},
		{100, 10, 0, 0},
	}
	for _, c := range cases {
		r := stats.Calculate(c[0], c[1], c[2], c[3])
		if r.Confidence != 0 || r.Winner != "" || r.IsSignificant {
			t.Errorf("Calculate(%v): expected zero result, got %+v", c, r)
		}
	}
}

func TestCalculate_BWins(t *testing.T) {
	r := stats.Calculate(500, 100, 500, 200)

	if r.Winner != "B" {
		t.Errorf("expected winner B, got %q", r.Winner)
	}
}

func TestCalculate_ConfidenceMonotonicInSampleSize(t *testing.T) {
	// Same proportions, growing samples: confidence must not decrease.
	prev := -1.0
	for _, n := range []int{100, 200, 500, 1000, 5000} {
		r := stats.Calculate(n, n*3/10, n, n*2/10)
		if r.Confidence < prev {
			t.Errorf("confidence decreased at n=%d: %f < %f", n, r.Confidence, prev)
		}
		prev = r.Confidence
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	a := stats.Calculate(437, 91, 512, 77)
	b := stats.Calculate(437, 91, 512, 77)

	if a != b {
		t.Errorf("identical inputs gave different results: %+v vs %+v", a, b)
	}
}

func TestValidateCounts(t *testing.T) {
	if err := stats.ValidateCounts(100, 30); err != nil {
		t.Errorf("valid counts rejected: %v", err)
	}
	if err := stats.ValidateCounts(-1, 0); err == nil {
		t.Error("expected error for negative trials")
	}
	if err := stats.ValidateCounts(10, -1); err == nil {
		t.Error("expected error for negative successes")
	}
	if err := stats.ValidateCounts(10, 11); err == nil {
		t.Error("expected error for successes > trials")
	}
}

func TestSummarize_LeadingAndConfidence(t *testing.T) {
	variants := []store.Variant{
		{Label: "A", Impressions: 500, Engagements: 100},
		{Label: "B", Impressions: 500, Engagements: 200},
	}

	summary := stats.Summarize(variants)

	if summary.Leading != 1 {
		t.Errorf("expected variant B leading, got index %d", summary.Leading)
	}
	if !summary.Significant {
		t.Errorf("expected significant at %f%% confidence", summary.ConfidenceLevel)
	}
	if summary.Variants[1].Rate != 40 {
		t.Errorf("expected 40%% rate, got %f", summary.Variants[1].Rate)
	}
	if summary.Variants[0].CILower <= 0 || summary.Variants[0].CIUpper >= 100 {
		t.Errorf("confidence interval out of expected bounds: [%f, %f]",
			summary.Variants[0].CILower, summary.Variants[0].CIUpper)
	}
}

func TestSummarize_NoData(t *testing.T) {
	variants := []store.Variant{
		{Label: "A"},
		{Label: "B"},
	}

	summary := stats.Summarize(variants)

	if summary.ConfidenceLevel != 0 {
		t.Errorf("expected 0 confidence with no data, got %f", summary.ConfidenceLevel)
	}
	if summary.Significant {
		t.Error("expected not significant with no data")
	}
}
