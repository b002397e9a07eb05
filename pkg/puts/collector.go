package puts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/client"
)

// Prometheus metrics for collection runs.
var (
	putsCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "putsync_puts_collected_total",
		Help: "Total number of PUTs whose lines were collected",
	})

	linesCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "putsync_lines_collected_total",
		Help: "Total number of PUT lines collected",
	})

	listPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "putsync_list_pages_total",
		Help: "Total number of PUT listing pages walked",
	})
)

// Pagination response headers of the PUT listing.
const (
	HeaderPaginationCurrentPage = "X-Pagination-Current-Page"
	HeaderPaginationPageCount   = "X-Pagination-Page-Count"
)

// DefaultPageSize matches the API's maximum page size. Large pages keep the
// listing walk short, which matters with a shared rate budget.
const DefaultPageSize = 1000

// OpenPutStatus selects PUTs that are still open for receiving.
const OpenPutStatus = "0"

// Config holds collector configuration.
type Config struct {
	// PageSize caps the number of records per listing request.
	// Defaults to DefaultPageSize.
	PageSize int

	// OnProgress, when set, is called after each PUT's lines arrive with
	// the number of PUTs done and the total discovered.
	OnProgress func(done, total int)
}

// Collector walks the open-PUT listing and gathers every line. All fetching
// is strictly sequential: the rate budget belongs to a single account, and
// the discovered order decides key conflicts downstream.
type Collector struct {
	client *client.Client
	config Config
	logger zerolog.Logger
}

// NewCollector creates a collector on top of an API client.
func NewCollector(apiClient *client.Client, cfg Config) (*Collector, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	return &Collector{
		client: apiClient,
		config: cfg,
		logger: log.With().Str("component", "collector").Logger(),
	}, nil
}

// ListPutIDs walks GET /puts?status=0 page by page and returns the ids of
// every open PUT in listing order. The walk follows the pagination response
// headers; when either header is absent or unparsable it stops with what it
// has, which also covers servers that do not paginate at all.
func (c *Collector) ListPutIDs(ctx context.Context) ([]string, error) {
	var ids []string

	for page := 1; ; page++ {
		query := url.Values{
			"status": {OpenPutStatus},
			"limit":  {strconv.Itoa(c.config.PageSize)},
			"page":   {strconv.Itoa(page)},
		}

		resp, err := c.client.Get(ctx, "/puts", query)
		if err != nil {
			return nil, fmt.Errorf("list puts page %d: %w", page, err)
		}

		var records []putRecord
		decodeErr := json.NewDecoder(resp.Body).Decode(&records)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decode puts page %d: %w", page, decodeErr)
		}

		listPagesTotal.Inc()
		for _, rec := range records {
			if rec.ID == "" {
				continue
			}
			ids = append(ids, string(rec.ID))
		}

		current, total, ok := paginationHeaders(resp.Header)
		if !ok {
			c.logger.Debug().
				Int("page", page).
				Int("puts", len(ids)).
				Msg("Pagination headers missing, stopping walk")
			return ids, nil
		}

		c.logger.Debug().
			Int("page", current).
			Int("total_pages", total).
			Int("puts", len(ids)).
			Msg("Listing page fetched")

		if current >= total {
			return ids, nil
		}
	}
}

// Lines fetches every line of one PUT.
func (c *Collector) Lines(ctx context.Context, putID string) ([]Line, error) {
	query := url.Values{
		"limit": {strconv.Itoa(c.config.PageSize)},
	}

	resp, err := c.client.Get(ctx, "/puts/"+url.PathEscape(putID)+"/lines", query)
	if err != nil {
		return nil, fmt.Errorf("fetch lines for put %s: %w", putID, err)
	}
	defer resp.Body.Close()

	var records []lineRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode lines for put %s: %w", putID, err)
	}

	lines := make([]Line, 0, len(records))
	for i := range records {
		lines = append(lines, records[i].toLine(putID))
	}
	return lines, nil
}

// CollectAll lists every open PUT and gathers their lines in discovered
// order. One unit of progress is reported per PUT.
func (c *Collector) CollectAll(ctx context.Context) ([]Line, error) {
	start := time.Now()

	ids, err := c.ListPutIDs(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Int("puts", len(ids)).
		Msg("Starting line collection")

	var lines []Line
	for i, id := range ids {
		putLines, err := c.Lines(ctx, id)
		if err != nil {
			return nil, err
		}
		lines = append(lines, putLines...)

		putsCollectedTotal.Inc()
		linesCollectedTotal.Add(float64(len(putLines)))

		done := i + 1
		if c.config.OnProgress != nil {
			c.config.OnProgress(done, len(ids))
		}
		if done%25 == 0 {
			c.logger.Info().
				Int("done", done).
				Int("total", len(ids)).
				Int("lines", len(lines)).
				Msg("Collection progress")
		}
	}

	c.logger.Info().
		Int("puts", len(ids)).
		Int("lines", len(lines)).
		Dur("duration", time.Since(start)).
		Msg("Collection complete")

	return lines, nil
}

// paginationHeaders parses the listing pagination headers. ok is false when
// either header is missing or not a number.
func paginationHeaders(h http.Header) (current, total int, ok bool) {
	current, err := strconv.Atoi(h.Get(HeaderPaginationCurrentPage))
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.Atoi(h.Get(HeaderPaginationPageCount))
	if err != nil {
		return 0, 0, false
	}
	return current, total, true
}
