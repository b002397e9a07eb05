package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/logging"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/reconcile"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/sheet"
)

var (
	runSheet    string
	runOut      string
	runLinesOut string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch open PUT lines and merge them into a checklist in one go",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "checklist workbook (xlsx)")
	runCmd.Flags().StringVar(&runOut, "out", "", "output workbook path (default <sheet>_updated.xlsx)")
	runCmd.Flags().StringVar(&runLinesOut, "lines-out", "", "also write the fetched lines to this CSV path")
	runCmd.MarkFlagRequired("sheet")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	logger := logging.NewLogger("run")

	// Load the checklist before spending minutes on collection, so a bad
	// path fails immediately.
	table, err := sheet.Load(runSheet)
	if err != nil {
		return fmt.Errorf("load %s: %w", runSheet, err)
	}

	collector, err := buildCollector(debugProgress(logger))
	if err != nil {
		return err
	}

	start := time.Now()
	lines, err := collector.CollectAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("collect lines: %w", err)
	}

	if runLinesOut != "" {
		f, err := os.Create(runLinesOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", runLinesOut, err)
		}
		if err := puts.WriteCSV(f, lines); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", runLinesOut, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", runLinesOut, err)
		}
	}

	summary := reconcile.Reconcile(table, lines)

	out := runOut
	if out == "" {
		out = updatedName(runSheet)
	}
	if err := table.Save(out); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}

	logger.Info().
		Int("puts", countPuts(lines)).
		Int("lines", summary.Lines).
		Int("put_filled", summary.PutFilled).
		Int("quantity_filled", summary.QuantityFilled).
		Int("unmatched", summary.Unmatched).
		Str("out", out).
		Dur("duration", time.Since(start)).
		Msg("Run complete")
	return nil
}
