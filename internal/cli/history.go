package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [NAME]",
	Short: "Show recent evolution passes, or one instinct's confidence changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum number of entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	db := openHistory()
	if db == nil {
		return errors.New("history not available: database disabled or unreadable")
	}
	defer db.Close()

	if len(args) == 1 {
		evs, err := db.InstinctHistory(args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(evs) == 0 {
			fmt.Fprintf(out, "No recorded changes for %s.\n", args[0])
			return nil
		}
		fmt.Fprintf(out, "History for %s\n\n", args[0])
		for _, e := range evs {
			fmt.Fprintf(out, "  %-16s %.0f%% -> %.0f%%  (%d relevant)\n",
				humanize.Time(time.UnixMilli(e.EvolvedAt)),
				e.OldConfidence*100, e.NewConfidence*100, e.RelevantCount)
		}
		return nil
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No evolution passes recorded yet.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-16s %-10s %7s %7s\n", "Run", "Started", "Status", "Evolved", "Failed")
	for _, r := range runs {
		status := r.Status
		if r.DryRun {
			status += "*"
		}
		fmt.Fprintf(out, "%-36s  %-16s %-10s %7d %7d\n",
			r.RunID, humanize.Time(time.UnixMilli(r.StartedAt)), status, r.EvolvedCount, r.FailedCount)
	}
	fmt.Fprintln(out, "\n* dry run")
	return nil
}
