package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DbCmd manages the jobrake database
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database operations",
	Long: `Manage the jobrake database.

Examples:
  jobrake db migrate    # Apply pending schema migrations
  jobrake db stats      # Show table counts`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show table counts",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	// openDatabase migrates as a side effect
	database, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	fmt.Printf("Database at %s is up to date\n", cfg.Database.Path)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	database, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	tables := []string{
		"job_boards", "scrape_jobs", "scrape_runs",
		"raw_jobs", "normalized_jobs", "job_posts",
		"tasks", "scheduled_scrapes",
	}

	fmt.Printf("Database: %s\n\n", cfg.Database.Path)
	for _, table := range tables {
		var count int
		if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return fmt.Errorf("failed to count %s: %w", table, err)
		}
		fmt.Printf("%-20s %d\n", table, count)
	}
	return nil
}
