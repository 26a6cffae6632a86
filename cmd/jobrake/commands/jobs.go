package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobrake/jobrake/scrape"
	"github.com/jobrake/jobrake/task"
)

// JobsCmd inspects and controls scrape jobs
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and control scrape jobs",
	Long: `Inspect scrape jobs and their per-board runs, start new jobs, and
request cancellation.

A job started here is picked up by a running daemon's workers; without a
daemon it stays queued.

Examples:
  jobrake jobs ls                        # Recent jobs
  jobrake jobs ls --status running       # Filter by status
  jobrake jobs start JB_abc JB_def       # Scrape two boards now
  jobrake jobs show SJ_123               # Job detail with runs
  jobrake jobs cancel SJ_123             # Request cancellation`,
}

var (
	jobsStatusFlag   string
	jobsLimitFlag    int
	jobsPriorityFlag int
)

var jobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List scrape jobs",
	RunE:  runJobsLs,
}

var jobsStartCmd = &cobra.Command{
	Use:   "start <board-id>...",
	Short: "Enqueue a scrape job over the given boards",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runJobsStart,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job and its per-board runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Request cancellation of a scrape job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsCancel,
}

func init() {
	jobsLsCmd.Flags().StringVar(&jobsStatusFlag, "status", "", "Filter by status (pending|running|completed|failed|cancelled)")
	jobsLsCmd.Flags().IntVar(&jobsLimitFlag, "limit", 20, "Number of jobs to show")
	jobsStartCmd.Flags().IntVar(&jobsPriorityFlag, "priority", 0, "Job priority")
	JobsCmd.AddCommand(jobsLsCmd)
	JobsCmd.AddCommand(jobsStartCmd)
	JobsCmd.AddCommand(jobsShowCmd)
	JobsCmd.AddCommand(jobsCancelCmd)
}

func runJobsLs(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	var status *scrape.JobStatus
	if jobsStatusFlag != "" {
		st := scrape.JobStatus(jobsStatusFlag)
		status = &st
	}

	jobs, err := scrape.NewJobStore(database).List(status, jobsLimitFlag)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("No scrape jobs")
		return nil
	}

	fmt.Printf("%-36s %-10s %-7s %-7s %s\n", "ID", "STATUS", "FOUND", "CREATED", "STARTED")
	for _, j := range jobs {
		started := "-"
		if j.StartedAt != nil {
			started = j.StartedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-36s %-10s %-7d %-7d %s\n", j.ID, j.Status, j.ItemsFound, j.ItemsCreated, started)
	}
	return nil
}

func runJobsStart(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	queue := task.NewQueue(database)
	orch := scrape.NewOrchestrator(database, queue)

	j, err := orch.EnqueueJob(args, jobsPriorityFlag, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Enqueued scrape job %s over %d board(s)\n", j.ID, len(args))
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	queue := task.NewQueue(database)
	orch := scrape.NewOrchestrator(database, queue)

	j, runs, err := orch.JobWithRuns(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Job:           %s\n", j.ID)
	fmt.Printf("Status:        %s\n", j.Status)
	fmt.Printf("Boards:        %d\n", len(j.BoardIDs))
	fmt.Printf("Items found:   %d\n", j.ItemsFound)
	fmt.Printf("Items created: %d\n", j.ItemsCreated)
	if j.LastError != "" {
		fmt.Printf("Last error:    %s\n", j.LastError)
	}
	if j.CancelRequested {
		fmt.Println("Cancellation requested")
	}

	if len(runs) > 0 {
		fmt.Printf("\n%-36s %-36s %-10s %-6s %-6s %s\n", "RUN", "BOARD", "STATUS", "PAGES", "ITEMS", "ERROR")
		for _, r := range runs {
			fmt.Printf("%-36s %-36s %-10s %-6d %-6d %s\n",
				r.ID, r.BoardID, r.Status, r.PagesScraped, r.ItemsFound, r.Error)
		}
	}
	return nil
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	queue := task.NewQueue(database)
	orch := scrape.NewOrchestrator(database, queue)

	j, err := orch.CancelJob(args[0])
	if err != nil {
		return err
	}

	if j.Status == scrape.JobStatusCancelled {
		fmt.Printf("Job %s cancelled\n", j.ID)
	} else {
		fmt.Printf("Cancellation requested for job %s (currently %s)\n", j.ID, j.Status)
	}
	return nil
}
