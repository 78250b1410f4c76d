package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lazypower/instinct/internal/evolve"
)

var (
	evolveDryRun bool
	evolveWatch  bool
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Re-evaluate instinct confidence from recent observations",
	RunE:  runEvolve,
}

func init() {
	evolveCmd.Flags().BoolVar(&evolveDryRun, "dry-run", false, "Show changes without writing them")
	evolveCmd.Flags().BoolVar(&evolveWatch, "watch", false, "Keep running and re-evolve when observations are appended")
}

func runEvolve(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	db := openHistory()
	if db != nil {
		defer db.Close()
	}
	eng := newEngine(db)

	if evolveWatch {
		if evolveDryRun {
			return errors.New("--watch and --dry-run cannot be combined")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", cfg.ObservationsFile())
		err := eng.Watch(ctx, cfg.Evolve.Debounce.Duration, func(r *evolve.Report) {
			printReport(out, r)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	report, err := eng.Run(cmd.Context(), evolve.RunOptions{DryRun: evolveDryRun})
	if err != nil {
		return err
	}
	printReport(out, report)
	return nil
}

var reasonMessages = map[evolve.Reason]string{
	evolve.ReasonNoLog:          "No observations file found. Nothing to evolve from.",
	evolve.ReasonNoDir:          "No instincts directory found. Nothing to evolve.",
	evolve.ReasonNoInstincts:    "No instincts to evolve.",
	evolve.ReasonNoObservations: "No valid observations found.",
}

func printReport(out io.Writer, r *evolve.Report) {
	if r.NothingToDo() {
		fmt.Fprintln(out, reasonMessages[r.Reason])
		return
	}

	fmt.Fprintf(out, "Analyzing %d observations against %d instincts...\n\n", r.Observations, r.Instincts)
	for _, c := range r.Changes {
		sign := "+"
		if c.New < c.Old {
			sign = "-"
		}
		delta := c.New - c.Old
		if delta < 0 {
			delta = -delta
		}
		fmt.Fprintf(out, "  %s: %.0f%% -> %.0f%% (%s%.0f%%)\n", c.Name, c.Old*100, c.New*100, sign, delta*100)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(out, "  %s: failed: %s\n", f.Filename, f.Error)
	}

	switch {
	case len(r.Changes) == 0:
		fmt.Fprintln(out, "No instincts needed updating.")
	case r.DryRun:
		fmt.Fprintf(out, "\nWould evolve %d instinct(s) (dry run, nothing written).\n", len(r.Changes))
	default:
		fmt.Fprintf(out, "\nEvolved %d instinct(s).\n", len(r.Changes))
	}
}
