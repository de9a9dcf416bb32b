package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/splitsignal/splitsignal/internal/stats"
	"github.com/splitsignal/splitsignal/internal/store"
)

// Policy configures when a running test may complete itself.
type Policy struct {
	AutoCompleteEnabled bool
	MinimumSampleSize   int
	ConfidenceThreshold float64 // percent
}

// PolicyForTest reads the per-test policy columns.
func PolicyForTest(t *store.Test) Policy {
	return Policy{
		AutoCompleteEnabled: t.AutoCompleteEnabled,
		MinimumSampleSize:   t.MinimumSampleSize,
		ConfidenceThreshold: t.ConfidenceThreshold,
	}
}

// CheckResult says whether a test should auto-complete and why or why
// not. Reason is user-facing text: it answers "why didn't my test
// finish" with actual numbers.
type CheckResult struct {
	ShouldComplete bool    `json:"should_complete"`
	Winner         string  `json:"winner"` // variant label, set when ShouldComplete
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// CheckAutoComplete decides whether an active test has gathered enough
// signal to close itself out. It never mutates anything; apply the
// decision with AutoCompleteTest.
func CheckAutoComplete(test *store.Test, variants []store.Variant, p Policy) CheckResult {
	if test.Status != store.StatusActive {
		return CheckResult{Reason: "Test not running"}
	}
	if !p.AutoCompleteEnabled {
		return CheckResult{Reason: "Auto-completion is disabled for this test"}
	}
	if len(variants) < 2 {
		return CheckResult{Reason: fmt.Sprintf("Test has %d variant(s); need at least 2 to compare", len(variants))}
	}

	lead, challenger := topTwo(variants)
	leader := variants[lead]
	runnerUp := variants[challenger]

	result := stats.Calculate(
		leader.Impressions, leader.Engagements,
		runnerUp.Impressions, runnerUp.Engagements,
	)

	smallest := leader.Impressions
	if runnerUp.Impressions < smallest {
		smallest = runnerUp.Impressions
	}
	if smallest < p.MinimumSampleSize {
		return CheckResult{
			Confidence: result.Confidence,
			Reason: fmt.Sprintf("Minimum sample size not reached: smallest variant has %d impressions, need %d",
				smallest, p.MinimumSampleSize),
		}
	}

	if !result.IsSignificant || result.Confidence < p.ConfidenceThreshold {
		return CheckResult{
			Confidence: result.Confidence,
			Reason: fmt.Sprintf("Confidence is %.1f%%, below the %.0f%% threshold",
				result.Confidence, p.ConfidenceThreshold),
		}
	}

	winner := pickWinner(result.Winner, leader, runnerUp)
	return CheckResult{
		ShouldComplete: true,
		Winner:         winner.Label,
		Confidence:     result.Confidence,
		Reason: fmt.Sprintf("Test reached %.1f%% confidence; variant %s is the winner",
			result.Confidence, winner.Label),
	}
}

// TestCompleter applies the completed-state transition. The store's
// implementation is conditional on the test still being active, which
// keeps concurrent sweeps from completing the same test twice.
type TestCompleter interface {
	CompleteTest(ctx context.Context, id, winningVariantID string, confidence float64) error
}

// CompleteResult reports what AutoCompleteTest did. Success with
// Completed=false means the test was already completed (no-op);
// Success=false carries the typed reason the preconditions failed.
type CompleteResult struct {
	Success    bool    `json:"success"`
	Completed  bool    `json:"completed"`
	Winner     string  `json:"winner"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// AutoCompleteTest checks the policy and, when it passes, marks the test
// completed with the winning variant and achieved confidence. Calling it
// on an already-completed test is a no-op success. Only storage failures
// surface as errors.
func AutoCompleteTest(ctx context.Context, completer TestCompleter, test *store.Test, variants []store.Variant, p Policy) (CompleteResult, error) {
	if test.Status == store.StatusCompleted {
		return CompleteResult{Success: true, Reason: "Test already completed"}, nil
	}

	check := CheckAutoComplete(test, variants, p)
	if !check.ShouldComplete {
		return CompleteResult{Confidence: check.Confidence, Reason: check.Reason}, nil
	}

	var winnerID string
	for _, v := range variants {
		if v.Label == check.Winner {
			winnerID = v.ID
			break
		}
	}

	err := completer.CompleteTest(ctx, test.ID, winnerID, check.Confidence)
	if errors.Is(err, store.ErrNotActive) {
		// Another caller completed it between check and apply.
		return CompleteResult{Success: true, Reason: "Test already completed"}, nil
	}
	if err != nil {
		return CompleteResult{}, fmt.Errorf("failed to apply completion: %w", err)
	}

	return CompleteResult{
		Success:    true,
		Completed:  true,
		Winner:     check.Winner,
		Confidence: check.Confidence,
		Reason:     check.Reason,
	}, nil
}
