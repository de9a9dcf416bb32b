package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitsignal/splitsignal/internal/insights"
	"github.com/splitsignal/splitsignal/internal/store"
)

var insightsCmd = &cobra.Command{
	Use:   "insights <user-id>",
	Short: "Show cross-test insights for a user",
	Long: `Aggregate a user's completed tests into platform performance, winning
and losing content patterns, and prioritized recommendations.`,
	Args: cobra.ExactArgs(1),
	RunE: runInsights,
}

func init() {
	rootCmd.AddCommand(insightsCmd)
}

func runInsights(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		tests, err := s.ListTests(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to list tests: %w", err)
		}

		records := make([]insights.TestRecord, 0, len(tests))
		for _, t := range tests {
			variants, err := s.VariantsForTest(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("failed to get variants for test %s: %w", t.ID, err)
			}
			record, _ := insights.RecordFromTest(t, variants)
			records = append(records, record)
		}

		report := insights.GenerateHistoryInsights(records)

		fmt.Printf("TESTS: %d total, %d completed with a winner\n", report.TotalTests, report.CompletedTests)
		if report.CompletedTests > 0 {
			fmt.Printf("AVG CONFIDENCE: %.1f%%\n", report.AvgConfidenceLevel)
			fmt.Printf("MOST TESTED: %s   BEST PERFORMING: %s\n",
				report.MostTestedPlatform, report.BestPerformingPlatform)
			fmt.Printf("CADENCE: %.1f tests/month\n", report.TimeAnalysis.TestFrequency)
		}

		if len(report.WinningElements) > 0 {
			fmt.Println()
			fmt.Println("WINNING PATTERNS")
			fmt.Println(strings.Repeat("─", 50))
			for _, e := range report.WinningElements {
				fmt.Printf("  %-28s ×%-3d %s\n", e.Element, e.Frequency, e.Impact)
			}
		}

		if len(report.LosingElements) > 0 {
			fmt.Println()
			fmt.Println("LOSING PATTERNS")
			fmt.Println(strings.Repeat("─", 50))
			for _, e := range report.LosingElements {
				fmt.Printf("  %-28s ×%-3d %s\n", e.Element, e.Frequency, e.Impact)
			}
		}

		if len(report.HistoricalInsights) > 0 {
			fmt.Println()
			fmt.Println("INSIGHTS")
			fmt.Println(strings.Repeat("─", 50))
			for _, in := range report.HistoricalInsights {
				fmt.Printf("  [%s/%s] %s\n      %s\n", in.Category, in.Confidence, in.Title, in.Description)
			}
		}

		fmt.Println()
		fmt.Println("RECOMMENDATIONS")
		fmt.Println(strings.Repeat("─", 50))
		for _, r := range report.Recommendations {
			fmt.Printf("  [%s] %s\n      %s\n", strings.ToUpper(string(r.Priority)), r.Title, r.Description)
		}

		return nil
	})
}
