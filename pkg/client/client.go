// Package client provides the rate-limited Itsperfect HTTP client behind
// every fetch in this repo. It attaches bearer tokens from a TokenSource,
// retries 429 responses at the fixed interval the API expects, and cools
// down proactively when response headers report a nearly exhausted token
// bucket, so sequential collection runs never trip the server's limiter.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/ratelimit"
)

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itsperfect_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "itsperfect_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itsperfect_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})

	rateLimitRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itsperfect_rate_limit_retries_total",
		Help: "Total number of 429 responses that were retried",
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itsperfect_retry_exhausted_total",
		Help: "Total number of times the 429 retry budget was exhausted",
	})

	throttleSleepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itsperfect_throttle_sleeps_total",
		Help: "Total number of proactive cooldowns taken from bucket headers",
	})

	throttleSleepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "itsperfect_throttle_sleep_seconds",
		Help:    "Duration of proactive cooldowns in seconds",
		Buckets: []float64{1, 2, 4, 8, 10},
	})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit rejections.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// TokenSource supplies the bearer token attached to every request.
// Implementations refresh expired tokens before returning one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is the rate-limited Itsperfect API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger

	// sleep is replaced in tests so retry and cooldown paths run without
	// real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://example.itsperfect.it/api/v3".
	BaseURL string

	// Tokens supplies bearer tokens (usually an auth.Session).
	Tokens TokenSource

	// UserAgent identifies this tool to the API.
	UserAgent string

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// RetryInterval is the wait between 429 retries. The server drains its
	// bucket on a fixed schedule, so the interval is flat rather than
	// exponential.
	RetryInterval time.Duration

	// Max429Retries bounds the 429 retry loop. A server that still rejects
	// after the budget is spent surfaces as a hard failure instead of
	// stalling the run forever.
	Max429Retries int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string, tokens TokenSource) Config {
	return Config{
		BaseURL:       baseURL,
		Tokens:        tokens,
		UserAgent:     "putsync/1.0 (github.com/newamsterdamtech/b-fashion-brands-puts)",
		Timeout:       30 * time.Second,
		RetryInterval: 3 * time.Second,
		Max429Retries: 20,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	defaults := DefaultConfig(cfg.BaseURL, cfg.Tokens)
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}
	if cfg.Max429Retries <= 0 {
		cfg.Max429Retries = defaults.Max429Retries
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "itsperfect-client").Logger(),
		sleep:  sleepContext,
	}, nil
}

// Get performs a GET against an API path (relative to the base URL) with the
// given query parameters. On a nil error the response is non-nil, has a 2xx
// status and its body is owned by the caller. 429 responses are retried
// in-place; any other failure is returned as an *APIError and never retried.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	endpoint := path
	requestURL := c.config.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		token, err := c.config.Tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("obtain session token: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.config.UserAgent)

		start := time.Now()
		resp, reqErr := c.httpClient.Do(req)
		duration := time.Since(start)
		apiRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

		if reqErr != nil {
			apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			return nil, &APIError{
				Endpoint:   endpoint,
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		apiRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Dur("duration", duration).
			Msg("API request")

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			apiErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()

			if attempt >= c.config.Max429Retries {
				retryExhaustedTotal.Inc()
				c.logger.Error().
					Str("endpoint", endpoint).
					Int("attempts", attempt+1).
					Msg("Rate limit retry budget exhausted")
				return nil, &APIError{
					StatusCode: resp.StatusCode,
					Endpoint:   endpoint,
					ErrorClass: ErrorClassRateLimit,
					Message:    fmt.Sprintf("still rejected after %d retries", attempt),
					Err:        ErrRetryExhausted,
				}
			}

			rateLimitRetriesTotal.Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Dur("wait", c.config.RetryInterval).
				Msg("Rate limited, retrying")
			if err := c.sleep(ctx, c.config.RetryInterval); err != nil {
				return nil, err
			}
			continue
		}

		// The cooldown happens before the response is handed back, so the
		// next request finds a drained bucket no matter what the caller
		// does in between.
		if state, ok := ratelimit.ParseHeaders(resp.Header); ok && state.NeedsCooldown() {
			cooldown := state.Cooldown()
			throttleSleepsTotal.Inc()
			throttleSleepSeconds.Observe(cooldown.Seconds())
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("bucket_size", state.Size).
				Int("marbles", state.Marbles).
				Int("remaining", state.Remaining).
				Dur("cooldown", cooldown).
				Msg("Bucket nearly exhausted, cooling down")
			if err := c.sleep(ctx, cooldown); err != nil {
				resp.Body.Close()
				return nil, err
			}
		}

		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			apiErrorsTotal.WithLabelValues(string(errClass)).Inc()
			message := errorSnippet(resp)
			c.logger.Error().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("API request error")
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Endpoint:   endpoint,
				ErrorClass: errClass,
				Message:    message,
			}
		}

		return resp, nil
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
