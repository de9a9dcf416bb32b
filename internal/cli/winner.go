package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitsignal/splitsignal/internal/engine"
	"github.com/splitsignal/splitsignal/internal/store"
)

func init() {
	rootCmd.AddCommand(newWinnerCmd())
}

func newWinnerCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "winner <id>",
		Short: "Declare a winner for a test",
		Long: `Declare a winning variant for an active A/B test and complete it.
The achieved confidence is stamped on the test alongside the winner.

Example:
  splitsignal winner 6e8bd3f0-... --variant A`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				test, err := s.GetTest(ctx, args[0])
				if err != nil {
					return fmt.Errorf("test not found: %s", args[0])
				}

				// Validate test is active
				if test.Status != store.StatusActive {
					return fmt.Errorf("test is not active (current status: %s)", test.Status)
				}

				variants, err := s.VariantsForTest(ctx, test.ID)
				if err != nil {
					return fmt.Errorf("failed to get variants: %w", err)
				}

				var winner *store.Variant
				for i := range variants {
					if variants[i].Label == label {
						winner = &variants[i]
						break
					}
				}
				if winner == nil {
					return fmt.Errorf("no variant labeled '%s' on this test", label)
				}

				decision, err := engine.DetermineWinner(variants)
				if err != nil {
					return err
				}

				if err := s.CompleteTest(ctx, test.ID, winner.ID, decision.Confidence); err != nil {
					return fmt.Errorf("failed to set winner: %w", err)
				}

				fmt.Printf("Declared winner for test '%s': variant %s (\"%s\")\n", test.Name, winner.Label, winner.Content)
				fmt.Printf("Test has been marked as completed at %.1f%% confidence.\n", decision.Confidence)
				if decision.WinnerLabel != "" && decision.WinnerLabel != winner.Label {
					fmt.Printf("\nNote: the engine currently favors variant %s. %s\n", decision.WinnerLabel, decision.Recommendation)
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&label, "variant", "v", "", "winning variant label (required)")
	cmd.MarkFlagRequired("variant")

	return cmd
}
