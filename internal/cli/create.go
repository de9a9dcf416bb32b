package cli

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/splitsignal/splitsignal/internal/config"
	"github.com/splitsignal/splitsignal/internal/store"
)

var platforms = []string{"twitter", "linkedin", "instagram", "facebook", "tiktok", "threads"}

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		userID         string
		platform       string
		variantTexts   []string
		durationHours  int
		minSample      int
		confThreshold  float64
		noAutoComplete bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new A/B test",
		Long: `Create a new A/B test with the specified name and variants. Variants
are labeled A, B, C... in the order given. The test starts in draft;
run 'splitsignal start <id>' (or POST /api/tests/<id>/start) once the
variants are live.

Examples:
  splitsignal create launch-post --user u1 --platform linkedin \
    --variant "We just shipped v2. Here's what changed." \
    --variant "v2 is live! 🚀 Click to see what's new #launch"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testName := args[0]

			if len(variantTexts) < 2 {
				return fmt.Errorf("need at least 2 variants. Pass --variant twice")
			}

			// Ask for the platform when it wasn't given
			if platform == "" {
				prompt := promptui.Select{
					Label: "Platform",
					Items: platforms,
				}
				_, chosen, err := prompt.Run()
				if err != nil {
					if err == promptui.ErrInterrupt {
						return fmt.Errorf("cancelled")
					}
					return fmt.Errorf("prompt failed: %w", err)
				}
				platform = chosen
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			policy := cfg.DefaultPolicy()
			if minSample > 0 {
				policy.MinimumSampleSize = minSample
			}
			if confThreshold > 0 {
				policy.ConfidenceThreshold = confThreshold
			}
			if noAutoComplete {
				policy.AutoCompleteEnabled = false
			}

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				variants := make([]store.Variant, len(variantTexts))
				for i, text := range variantTexts {
					variants[i] = store.Variant{
						Label:   string(rune('A' + i)),
						Content: text,
					}
				}

				test := &store.Test{
					UserID:              userID,
					Name:                testName,
					Platform:            platform,
					DurationHours:       durationHours,
					AutoCompleteEnabled: policy.AutoCompleteEnabled,
					MinimumSampleSize:   policy.MinimumSampleSize,
					ConfidenceThreshold: policy.ConfidenceThreshold,
				}

				created, err := s.CreateTest(ctx, test, variants)
				if err != nil {
					return fmt.Errorf("failed to create test: %w", err)
				}

				fmt.Printf("Created test '%s' (%s) on %s with %d variants:\n",
					created.Name, created.ID, created.Platform, len(variants))
				for _, v := range variants {
					fmt.Printf("  %s: %s\n", v.Label, v.Content)
				}
				if policy.AutoCompleteEnabled {
					fmt.Printf("Auto-complete: on (min %d impressions per variant, %.0f%% confidence)\n",
						policy.MinimumSampleSize, policy.ConfidenceThreshold)
				} else {
					fmt.Println("Auto-complete: off")
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "owner user id (required)")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "platform (prompted when omitted)")
	cmd.Flags().StringArrayVarP(&variantTexts, "variant", "v", nil, "variant post text (repeat per variant, required)")
	cmd.Flags().IntVar(&durationHours, "duration", 0, "planned duration in hours (0 = open-ended)")
	cmd.Flags().IntVar(&minSample, "min-sample", 0, "minimum impressions per variant before auto-complete")
	cmd.Flags().Float64Var(&confThreshold, "confidence", 0, "confidence threshold for auto-complete (percent)")
	cmd.Flags().BoolVar(&noAutoComplete, "no-auto-complete", false, "disable auto-completion for this test")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("variant")

	return cmd
}
