package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobrake/jobrake/engine"
)

// EngineCmd shows engine heartbeat state
var EngineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Show engine heartbeat state",
	Long: `Show the engine's last persisted heartbeat: pipeline status, job
counts, normalization backlog, and rolling success rate.

Examples:
  jobrake engine status`,
}

var engineStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current engine state",
	RunE:  runEngineStatus,
}

func init() {
	EngineCmd.AddCommand(engineStatusCmd)
}

func runEngineStatus(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	st, err := engine.NewStateStore(database).Get()
	if err != nil {
		return err
	}

	fmt.Printf("Status:                %s\n", st.Status)
	fmt.Printf("Active jobs:           %d\n", st.ActiveJobs)
	fmt.Printf("Queued jobs:           %d\n", st.QueuedJobs)
	fmt.Printf("Processed today:       %d\n", st.JobsProcessedToday)
	fmt.Printf("Pending normalization: %d\n", st.PendingNormalization)
	fmt.Printf("Success rate:          %.0f%%\n", st.SuccessRate*100)
	if st.LastHeartbeatAt.IsZero() {
		fmt.Println("Last heartbeat:        never")
	} else {
		fmt.Printf("Last heartbeat:        %s\n", st.LastHeartbeatAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
