package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/logging"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
)

var fetchOut string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect all open PUT lines into a CSV artifact",
	Long: `Fetch walks the open-PUT listing, collects every shipment line and
writes them to a CSV file that merge can consume later. Collection is
sequential and respects the API's token bucket, so large tenants can take
a few minutes.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOut, "out", "lines.csv", "output CSV path")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	logger := logging.NewLogger("fetch")

	collector, err := buildCollector(debugProgress(logger))
	if err != nil {
		return err
	}

	start := time.Now()
	lines, err := collector.CollectAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("collect lines: %w", err)
	}

	f, err := os.Create(fetchOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", fetchOut, err)
	}
	if err := puts.WriteCSV(f, lines); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", fetchOut, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", fetchOut, err)
	}

	logger.Info().
		Int("puts", countPuts(lines)).
		Int("lines", len(lines)).
		Str("out", fetchOut).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")
	return nil
}
