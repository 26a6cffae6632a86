package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobrake/jobrake/schedule"
)

// SchedulesCmd manages recurring scrapes
var SchedulesCmd = &cobra.Command{
	Use:   "schedules",
	Short: "Manage recurring scrapes",
	Long: `Manage interval-based scrape schedules. A running daemon's ticker
enqueues a scrape job whenever an active schedule comes due.

Examples:
  jobrake schedules ls
  jobrake schedules add hourly 3600 JB_abc JB_def
  jobrake schedules pause SS_123
  jobrake schedules resume SS_123
  jobrake schedules rm SS_123`,
}

var schedulesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List schedules",
	RunE:  runSchedulesLs,
}

var schedulesAddCmd = &cobra.Command{
	Use:   "add <name> <interval-seconds> <board-id>...",
	Short: "Create a schedule",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runSchedulesAdd,
}

var schedulesPauseCmd = &cobra.Command{
	Use:   "pause <schedule-id>",
	Short: "Pause a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  setScheduleState(schedule.StatePaused),
}

var schedulesResumeCmd = &cobra.Command{
	Use:   "resume <schedule-id>",
	Short: "Resume a paused schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  setScheduleState(schedule.StateActive),
}

var schedulesRmCmd = &cobra.Command{
	Use:   "rm <schedule-id>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulesRm,
}

func init() {
	SchedulesCmd.AddCommand(schedulesLsCmd)
	SchedulesCmd.AddCommand(schedulesAddCmd)
	SchedulesCmd.AddCommand(schedulesPauseCmd)
	SchedulesCmd.AddCommand(schedulesResumeCmd)
	SchedulesCmd.AddCommand(schedulesRmCmd)
}

func runSchedulesLs(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	schedules, err := schedule.NewStore(database).List()
	if err != nil {
		return err
	}

	if len(schedules) == 0 {
		fmt.Println("No schedules")
		return nil
	}

	fmt.Printf("%-36s %-16s %-8s %-10s %s\n", "ID", "NAME", "STATE", "INTERVAL", "NEXT RUN")
	for _, sc := range schedules {
		next := "-"
		if sc.NextRunAt != nil {
			next = sc.NextRunAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-36s %-16s %-8s %-10s %s\n", sc.ID, sc.Name, sc.State, sc.Interval(), next)
	}
	return nil
}

func runSchedulesAdd(cmd *cobra.Command, args []string) error {
	var interval int
	if _, err := fmt.Sscanf(args[1], "%d", &interval); err != nil {
		return fmt.Errorf("invalid interval %q: %w", args[1], err)
	}

	sc, err := schedule.New(args[0], args[2:], interval)
	if err != nil {
		return err
	}

	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := schedule.NewStore(database).Create(sc); err != nil {
		return err
	}

	fmt.Printf("Created schedule %s (%s every %s)\n", sc.ID, sc.Name, sc.Interval())
	return nil
}

func setScheduleState(state schedule.State) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		database, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := schedule.NewStore(database).SetState(args[0], state); err != nil {
			return err
		}
		fmt.Printf("Schedule %s is now %s\n", args[0], state)
		return nil
	}
}

func runSchedulesRm(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := schedule.NewStore(database).Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted schedule %s\n", args[0])
	return nil
}
