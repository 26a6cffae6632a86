package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobrake/jobrake/cmd/jobrake/commands"
	"github.com/jobrake/jobrake/logger"
)

var rootCmd = &cobra.Command{
	Use:   "jobrake",
	Short: "jobrake - job listing ingestion pipeline",
	Long: `jobrake - scrape, normalize, and publish job listings.

jobrake ingests listings from configured job boards (RSS, HTML, API),
deduplicates them by content, normalizes and scores them, and publishes
the ones that clear each board's quality bar.

Available commands:
  serve     - Run the pipeline daemon (workers, scheduler, HTTP API)
  boards    - Manage job board sources
  jobs      - Inspect and control scrape jobs
  schedules - Manage recurring scrapes
  engine    - Show engine heartbeat state
  db        - Database operations

Examples:
  jobrake serve                      # Start the daemon
  jobrake boards ls                  # List configured boards
  jobrake jobs start JB_abc JB_def   # Scrape two boards now
  jobrake jobs show SJ_123           # Inspect a scrape job
  jobrake engine status              # Show pipeline load`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.BoardsCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.SchedulesCmd)
	rootCmd.AddCommand(commands.EngineCmd)
	rootCmd.AddCommand(commands.DbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
