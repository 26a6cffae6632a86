package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobrake/jobrake/board"
	"github.com/jobrake/jobrake/errors"
)

// BoardsCmd manages job board sources
var BoardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "Manage job board sources",
	Long: `Manage the job boards the pipeline scrapes.

Examples:
  jobrake boards ls                        # List all boards
  jobrake boards ls --active               # Only active boards
  jobrake boards add board.json            # Add a board from a JSON file
  jobrake boards show JB_abc               # Show one board`,
}

var boardsActiveFlag bool

var boardsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List job boards",
	RunE:  runBoardsLs,
}

var boardsAddCmd = &cobra.Command{
	Use:   "add <file.json>",
	Short: "Add a board from a JSON definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoardsAdd,
}

var boardsShowCmd = &cobra.Command{
	Use:   "show <board-id>",
	Short: "Show a board's configuration and counters",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoardsShow,
}

var boardsEnableCmd = &cobra.Command{
	Use:   "enable <board-id>",
	Short: "Enable a board",
	Args:  cobra.ExactArgs(1),
	RunE:  setBoardActive(true),
}

var boardsDisableCmd = &cobra.Command{
	Use:   "disable <board-id>",
	Short: "Disable a board",
	Args:  cobra.ExactArgs(1),
	RunE:  setBoardActive(false),
}

func init() {
	boardsLsCmd.Flags().BoolVar(&boardsActiveFlag, "active", false, "Only list active boards")
	BoardsCmd.AddCommand(boardsLsCmd)
	BoardsCmd.AddCommand(boardsAddCmd)
	BoardsCmd.AddCommand(boardsShowCmd)
	BoardsCmd.AddCommand(boardsEnableCmd)
	BoardsCmd.AddCommand(boardsDisableCmd)
}

func setBoardActive(active bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		database, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := board.NewStore(database).SetActive(args[0], active); err != nil {
			return err
		}
		state := "disabled"
		if active {
			state = "enabled"
		}
		fmt.Printf("Board %s %s\n", args[0], state)
		return nil
	}
}

func runBoardsLs(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	boards, err := board.NewStore(database).List(boardsActiveFlag)
	if err != nil {
		return err
	}

	if len(boards) == 0 {
		fmt.Println("No boards configured")
		return nil
	}

	fmt.Printf("%-36s %-24s %-5s %-7s %s\n", "ID", "NAME", "KIND", "ACTIVE", "SCRAPES (OK/FAIL)")
	for _, b := range boards {
		fmt.Printf("%-36s %-24s %-5s %-7t %d/%d\n",
			b.ID, b.Name, b.Kind, b.IsActive, b.SuccessfulScrapes, b.FailedScrapes)
	}
	return nil
}

func runBoardsAdd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", args[0])
	}

	var b board.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return errors.Wrapf(err, "invalid board definition in %s", args[0])
	}

	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := board.NewStore(database).Create(&b); err != nil {
		return err
	}

	fmt.Printf("Created board %s (%s, %s)\n", b.ID, b.Name, b.Kind)
	return nil
}

func runBoardsShow(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	b, err := board.NewStore(database).Get(args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to render board")
	}
	fmt.Println(string(out))
	return nil
}
