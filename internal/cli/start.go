package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitsignal/splitsignal/internal/store"
)

func init() {
	rootCmd.AddCommand(startCmd, cancelCmd)
}

var startCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start a draft test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.SQLiteStore) error {
			err := s.StartTest(context.Background(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("test '%s' not found", args[0])
			}
			if errors.Is(err, store.ErrNotActive) {
				return fmt.Errorf("test '%s' is not in draft", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("Test '%s' is now active.\n", args[0])
			return nil
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a draft or active test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.SQLiteStore) error {
			err := s.CancelTest(context.Background(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("test '%s' not found", args[0])
			}
			if errors.Is(err, store.ErrNotActive) {
				return fmt.Errorf("test '%s' is already finished", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("Test '%s' cancelled.\n", args[0])
			return nil
		})
	},
}
