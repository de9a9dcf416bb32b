package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/splitsignal/splitsignal/internal/config"
	"github.com/splitsignal/splitsignal/internal/engine"
	"github.com/splitsignal/splitsignal/internal/scheduler"
	"github.com/splitsignal/splitsignal/internal/store"
)

func init() {
	rootCmd.AddCommand(newCompleteCmd())
}

func newCompleteCmd() *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "complete [id]",
		Short: "Run the auto-completion check",
		Long: `Check whether tests have gathered enough signal to complete
themselves, and complete the ones that have.

With an id, checks that single test and reports the decision. Without
one, sweeps every active test once; --watch keeps sweeping on an
interval, like the scheduler inside 'serve'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if interval == 0 {
				interval = cfg.Scheduler.Interval
			}

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				if len(args) == 1 {
					return completeOne(ctx, s, args[0])
				}

				logger, err := zap.NewProduction()
				if err != nil {
					return fmt.Errorf("failed to create logger: %w", err)
				}
				defer logger.Sync()

				sched := scheduler.New(s, cfg.DefaultPolicy(), interval, logger)

				if !watch {
					sched.Sweep(ctx)
					return nil
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				fmt.Printf("Sweeping every %s. Press Ctrl+C to stop.\n", interval)
				if err := sched.Run(ctx); err != context.Canceled {
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep sweeping on an interval")
	cmd.Flags().DurationVar(&interval, "interval", 0, "sweep interval (defaults to scheduler.interval from config)")

	return cmd
}

func completeOne(ctx context.Context, s *store.SQLiteStore, id string) error {
	test, err := s.GetTest(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return fmt.Errorf("test '%s' not found", id)
		}
		return fmt.Errorf("failed to get test: %w", err)
	}

	variants, err := s.VariantsForTest(ctx, test.ID)
	if err != nil {
		return fmt.Errorf("failed to get variants: %w", err)
	}

	result, err := engine.AutoCompleteTest(ctx, s, test, variants, engine.PolicyForTest(test))
	if err != nil {
		return err
	}

	if result.Completed {
		fmt.Printf("Completed: variant %s wins at %.1f%% confidence.\n", result.Winner, result.Confidence)
	} else {
		fmt.Println(result.Reason)
	}
	return nil
}
