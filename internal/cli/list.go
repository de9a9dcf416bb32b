package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/splitsignal/splitsignal/internal/store"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tests",
		Long:  `List A/B tests with their status and accumulated impressions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				tests, err := s.ListTests(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to list tests: %w", err)
				}

				if len(tests) == 0 {
					fmt.Println("No tests yet.")
					fmt.Println()
					fmt.Println("Create one with:")
					fmt.Println("  splitsignal create <name> --user <id> --variant \"...\" --variant \"...\"")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tPLATFORM\tSTATUS\tVARIANTS\tIMPRESSIONS\tENGAGEMENTS\tCREATED")

				for _, test := range tests {
					variants, err := s.VariantsForTest(ctx, test.ID)
					if err != nil {
						return fmt.Errorf("failed to get variants for test %s: %w", test.ID, err)
					}

					totalImpressions := 0
					totalEngagements := 0
					for _, v := range variants {
						totalImpressions += v.Impressions
						totalEngagements += v.Engagements
					}

					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
						test.ID,
						test.Name,
						test.Platform,
						strings.ToUpper(string(test.Status)),
						len(variants),
						formatNumber(totalImpressions),
						formatNumber(totalEngagements),
						test.CreatedAt.Format("2006-01-02"),
					)
				}

				w.Flush()
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "filter by owner user id")
	return cmd
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
