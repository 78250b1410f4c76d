package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/instinct/internal/evolve"
)

const barWidth = 20

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current instincts and their confidence levels",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dir := instinctsDir()

	if !dir.Exists() {
		fmt.Fprintln(out, "No instincts directory found.")
		fmt.Fprintf(out, "  Expected: %s\n", dir.Path)
		fmt.Fprintln(out, "  Run the observer agent to begin collecting instincts.")
		return nil
	}

	rows, err := dir.Summaries()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No instincts found yet.")
		fmt.Fprintln(out, "  Instincts are created automatically as the observer detects patterns.")
		return nil
	}

	fmt.Fprintf(out, "Instincts (%d total)\n\n", len(rows))
	fmt.Fprintf(out, "%-30s %-30s %s\n", "Name", "Confidence", "Category")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, r := range rows {
		line := fmt.Sprintf("%-30s %-30s %s", r.Name, confidenceBar(r.Confidence), r.Category)
		if ago := evolvedAgo(r.LastEvolved); ago != "" {
			line += "  (evolved " + ago + ")"
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	return printObservationStats(out)
}

// confidenceBar renders e.g. "[████████░░░░░░░░░░░░] 40%".
func confidenceBar(c float64) string {
	filled := int(c * barWidth)
	filled = max(0, min(barWidth, filled))
	return fmt.Sprintf("[%s%s] %.0f%%",
		strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled), c*100)
}

func evolvedAgo(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse(evolve.TimestampLayout, raw)
	if err != nil {
		return ""
	}
	return humanize.Time(t)
}

func printObservationStats(out io.Writer) error {
	log := observationLog()
	if !log.Exists() {
		fmt.Fprintln(out, "Observations: none yet")
		return nil
	}
	stats, err := log.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Observations: %s entries (%s)\n",
		humanize.Comma(int64(stats.Lines)), humanize.Bytes(uint64(stats.Bytes)))
	return nil
}
