package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/logging"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/reconcile"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/sheet"
)

var (
	mergeLines string
	mergeSheet string
	mergeOut   string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a fetched line artifact into a receiving checklist",
	Long: `Merge reconciles a previously fetched CSV artifact against a checklist
workbook, offline. Blank PUT cells are filled with the matching shipment
id, blank or zero received-quantity cells with the shipment's aggregated
quantity. Anything the operator entered is left alone.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeLines, "lines", "", "CSV artifact from a fetch run")
	mergeCmd.Flags().StringVar(&mergeSheet, "sheet", "", "checklist workbook (xlsx)")
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "output workbook path (default <sheet>_updated.xlsx)")
	mergeCmd.MarkFlagRequired("lines")
	mergeCmd.MarkFlagRequired("sheet")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(_ *cobra.Command, _ []string) error {
	logger := logging.NewLogger("merge")

	f, err := os.Open(mergeLines)
	if err != nil {
		return fmt.Errorf("open %s: %w", mergeLines, err)
	}
	lines, err := puts.ReadCSV(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", mergeLines, err)
	}

	table, err := sheet.Load(mergeSheet)
	if err != nil {
		return fmt.Errorf("load %s: %w", mergeSheet, err)
	}

	summary := reconcile.Reconcile(table, lines)

	out := mergeOut
	if out == "" {
		out = updatedName(mergeSheet)
	}
	if err := table.Save(out); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}

	logger.Info().
		Int("rows", summary.Rows).
		Int("lines", summary.Lines).
		Int("put_filled", summary.PutFilled).
		Int("quantity_filled", summary.QuantityFilled).
		Int("unmatched", summary.Unmatched).
		Str("out", out).
		Msg("Merge complete")
	return nil
}
