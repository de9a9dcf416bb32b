package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitsignal/splitsignal/internal/engine"
	"github.com/splitsignal/splitsignal/internal/stats"
	"github.com/splitsignal/splitsignal/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <id>",
	Short: "Show detailed results for a test",
	Long:  `Show detailed results including engagement rates, confidence intervals, and the engine's current recommendation.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		test, err := s.GetTest(ctx, args[0])
		if err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("test '%s' not found", args[0])
			}
			return fmt.Errorf("failed to get test: %w", err)
		}

		variants, err := s.VariantsForTest(ctx, test.ID)
		if err != nil {
			return fmt.Errorf("failed to get variants: %w", err)
		}

		summary := stats.Summarize(variants)

		// Print header
		fmt.Printf("TEST: %s (%s)\n", test.Name, test.ID)
		fmt.Printf("PLATFORM: %s\n", test.Platform)
		fmt.Printf("STATUS: %s\n", test.Status)
		fmt.Printf("CREATED: %s\n", test.CreatedAt.Format("2006-01-02"))
		if test.WinningVariantID != nil {
			fmt.Printf("WINNER: %s", *test.WinningVariantID)
			if test.ConfidenceLevel != nil {
				fmt.Printf(" (%.1f%% confidence)", *test.ConfidenceLevel)
			}
			fmt.Println()
		}
		fmt.Println()

		// Print table
		fmt.Println("VARIANT  IMPRESSIONS  ENGAGEMENTS  RATE     95% CI")
		fmt.Println(strings.Repeat("─", 60))

		for i, v := range summary.Variants {
			indicator := ""
			if i == summary.Leading && len(summary.Variants) > 1 {
				indicator = " ← LEADING"
			}

			ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", v.CILower, v.CIUpper)
			if v.Impressions == 0 {
				ciStr = "N/A"
			}

			fmt.Printf("%-7s  %-11d  %-11d  %-7s  %s%s\n",
				v.Label,
				v.Impressions,
				v.Engagements,
				formatPercent(v.Rate),
				ciStr,
				indicator,
			)
		}

		fmt.Println()

		if len(variants) >= 2 {
			decision, err := engine.DetermineWinner(variants)
			if err != nil {
				return err
			}
			fmt.Println(decision.Recommendation)
		}

		return nil
	})
}
