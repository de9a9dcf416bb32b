package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/splitsignal/splitsignal/internal/config"
	"github.com/splitsignal/splitsignal/internal/scheduler"
	"github.com/splitsignal/splitsignal/internal/server"
	"github.com/splitsignal/splitsignal/internal/store"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the auto-completion scheduler",
		Long: `Start the HTTP API for test management, metrics ingestion, results,
and insights, with the auto-completion scheduler sweeping active tests
in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			return withStore(func(s *store.SQLiteStore) error {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				sched := scheduler.New(s, cfg.DefaultPolicy(), cfg.Scheduler.Interval, logger)
				go sched.Run(ctx)

				srv := server.New(s, cfg.DefaultPolicy(), logger)

				fmt.Printf("splitsignal running on http://localhost:%d\n", cfg.Server.Port)
				fmt.Printf("Auto-completion sweep every %s\n", cfg.Scheduler.Interval)
				fmt.Println("Press Ctrl+C to stop")

				return srv.Start(cfg.Server.Port)
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}
