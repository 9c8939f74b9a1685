package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rohan1205/NeuraAttend/internal/database"
	"github.com/rohan1205/NeuraAttend/internal/facematch"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Work with attendance records",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records",
	Long: `List the attendance records of a day from the configured store.

Examples:
  # Today's records
  neuraattend attendance list

  # A specific day
  neuraattend attendance list --date 2024-03-01

  # Everything
  neuraattend attendance list --all`,
	RunE: runAttendanceList,
}

var attendanceMarkCmd = &cobra.Command{
	Use:   "mark <name>",
	Short: "Mark a person present now",
	Long: `Record attendance for a person by hand, for example when the camera is
down. Like the recognizer, it records at most one mark per person per day.`,
	Args: cobra.ExactArgs(1),
	RunE: runAttendanceMark,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceListCmd)
	attendanceCmd.AddCommand(attendanceMarkCmd)

	attendanceListCmd.Flags().String("date", "", "Day to list as YYYY-MM-DD (default today)")
	attendanceListCmd.Flags().Bool("all", false, "List every record")
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	all := mustGetBool(cmd, "all")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	ledger, closer, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	switch {
	case all:
		date = ""
	case date == "":
		date, _ = ledger.Stamp(time.Now())
	default:
		if _, err := time.Parse(database.DateLayout, date); err != nil {
			return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
		}
	}

	records, err := ledger.Records(ctx, date)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No attendance records")
		return nil
	}

	fmt.Printf("\n%-30s %-12s %s\n", "NAME", "DATE", "TIME")
	for _, r := range records {
		fmt.Printf("%-30s %-12s %s\n", r.Name, r.Date, r.Time)
	}
	fmt.Printf("\n%d records\n", len(records))
	return nil
}

func runAttendanceMark(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	ledger, closer, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	name := facematch.NormalizePersonName(args[0])
	recorded, err := ledger.MarkAt(ctx, name, time.Now())
	if err != nil {
		return err
	}
	if recorded {
		fmt.Printf("Marked %s present\n", name)
	} else {
		fmt.Printf("%s was already marked today\n", name)
	}
	return nil
}
