package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/auth"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/client"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/logging"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagBaseURL   string
	flagUsername  string
	flagPassword  string
)

var rootCmd = &cobra.Command{
	Use:   "putsync",
	Short: "Reconcile Itsperfect inbound shipments with receiving checklists",
	Long: `putsync collects the lines of all open PUTs (inbound shipments) from the
Itsperfect API and merges them into the warehouse receiving checklists:
blank PUT cells get their shipment id, empty received-quantity cells get
the aggregated shipment quantity.

Connection settings come from flags or from the environment
(ITSPERFECT_BASE_URL, ITSPERFECT_USERNAME, ITSPERFECT_PASSWORD), with a
.env file in the working directory loaded first.`,
	PersistentPreRunE: setupLogging,
	SilenceUsage:      true,
}

// Execute runs the CLI with signal-aware context cancellation.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadEnvFile)

	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "Itsperfect API base URL (env ITSPERFECT_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagUsername, "username", "", "Itsperfect API username (env ITSPERFECT_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "password", "", "Itsperfect API password (env ITSPERFECT_PASSWORD)")
}

// loadEnvFile loads a .env file from the working directory, if present.
func loadEnvFile() {
	_ = godotenv.Load()
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(flagLogLevel),
		Pretty: flagLogFormat != "json",
		Output: os.Stderr,
	})
	return nil
}

// envOr returns the flag value, falling back to the environment.
func envOr(flagValue, envKey string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envKey)
}

// buildCollector wires session, API client and collector from flags and
// environment.
func buildCollector(onProgress func(done, total int)) (*puts.Collector, error) {
	baseURL := envOr(flagBaseURL, "ITSPERFECT_BASE_URL")
	username := envOr(flagUsername, "ITSPERFECT_USERNAME")
	password := envOr(flagPassword, "ITSPERFECT_PASSWORD")

	session, err := auth.NewSession(auth.Config{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("configure session: %w", err)
	}

	apiClient, err := client.New(client.Config{
		BaseURL: baseURL,
		Tokens:  session,
	})
	if err != nil {
		return nil, fmt.Errorf("configure client: %w", err)
	}

	return puts.NewCollector(apiClient, puts.Config{OnProgress: onProgress})
}

// debugProgress reports per-PUT collection progress at debug level.
func debugProgress(logger zerolog.Logger) func(done, total int) {
	return func(done, total int) {
		logger.Debug().
			Int("done", done).
			Int("total", total).
			Msg("Collection progress")
	}
}

// countPuts counts the distinct shipment ids in a line set.
func countPuts(lines []puts.Line) int {
	seen := make(map[string]struct{})
	for _, line := range lines {
		if line.PutID != "" {
			seen[line.PutID] = struct{}{}
		}
	}
	return len(seen)
}

// updatedName derives the output filename for a merged checklist:
// check.xlsx becomes check_updated.xlsx.
func updatedName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_updated" + ext
}
