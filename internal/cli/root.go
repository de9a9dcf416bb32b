package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath  string
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "splitsignal",
	Short: "SplitSignal - a self-hosted A/B testing engine for social posts",
	Long: `SplitSignal runs content experiments for social-media posts: create a
test with two or more variants, feed in engagement metrics, and let the
engine call a statistically defensible winner - automatically when the
numbers are there.

Single Go binary, embedded SQLite.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("SPLITSIGNAL_DB_PATH", "./splitsignal.db"), "database path")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default searches ./splitsignal.yaml)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
