package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/instinct/internal/instincts"
)

var importForce bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import an instinct from a markdown file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	res, err := instinctsDir().Import(args[0], importForce)
	if errors.Is(err, instincts.ErrExists) {
		fmt.Fprintf(out, "Instinct already exists: %s\n", res.Dest.Name)
		fmt.Fprintln(out, "  Use --force to overwrite.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported: %s (confidence: %s)\n", res.Name, res.Confidence)
	fmt.Fprintf(out, "  -> %s\n", res.Dest.Path)
	return nil
}

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all instincts to a portable JSON document",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	doc, err := instinctsDir().Export(time.Now())
	if err != nil {
		return err
	}
	if err := instincts.WriteExport(doc, exportOutput); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d instincts to %s\n", doc.InstinctCount, exportOutput)
	return nil
}

func init() {
	importCmd.Flags().BoolVar(&importForce, "force", false, "Overwrite an existing instinct")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "instincts-export.json", "Output file path")
}
