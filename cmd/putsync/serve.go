package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/cache"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/logging"
)

var (
	serveAddr     string
	serveRedis    string
	serveCacheTTL time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the two-step fetch and merge workflow over HTTP",
	Long: `Serve runs a small web UI for warehouse operators: step one fetches the
open PUT lines and stores them under a run id, step two uploads a
checklist workbook and downloads it back with the blanks filled in.

Fetched lines are held in Redis when --redis-addr is set, in process
memory otherwise, and expire after --cache-ttl.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveRedis, "redis-addr", "", "Redis address for the line cache (in-memory when empty)")
	serveCmd.Flags().DurationVar(&serveCacheTTL, "cache-ttl", 2*time.Hour, "how long fetched lines stay available for merging")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.NewLogger("serve")

	var store cache.Store
	if serveRedis != "" {
		rdb := redis.NewClient(&redis.Options{Addr: serveRedis})
		if err := rdb.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", serveRedis, err)
		}
		redisStore, err := cache.NewRedisStore(rdb)
		if err != nil {
			return err
		}
		store = redisStore
		logger.Info().Str("addr", serveRedis).Msg("Line cache on Redis")
	} else {
		store = cache.NewMemoryStore()
		logger.Info().Msg("Line cache in memory")
	}

	collector, err := buildCollector(nil)
	if err != nil {
		return err
	}

	web := newWebServer(collector, store, serveCacheTTL)

	server := &http.Server{
		Addr:    serveAddr,
		Handler: web.routes(),
		// Fetching can sit through several cooldowns before the step-2
		// page renders.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", serveAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-cmd.Context().Done():
		logger.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}
	return nil
}
