//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/newamsterdamtech/b-fashion-brands-puts/internal/testutil"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/auth"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/cache"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/client"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/ratelimit"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/reconcile"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/sheet"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// newCollector wires session, client and collector against the mock API.
func newCollector(t *testing.T, mock *testutil.MockAPI, tweak func(*client.Config)) *puts.Collector {
	t.Helper()

	session, err := auth.NewSession(auth.Config{
		BaseURL:  mock.URL(),
		Username: "warehouse",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	cfg := client.DefaultConfig(mock.URL(), session)
	if tweak != nil {
		tweak(&cfg)
	}

	apiClient, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}

	collector, err := puts.NewCollector(apiClient, puts.Config{})
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}
	return collector
}

// TestCollectCacheReconcileFlow drives the full pipeline: authenticate,
// walk the paginated PUT listing, pull every PUT's lines, park them in
// Redis, read them back and merge them into a receiving checklist.
func TestCollectCacheReconcileFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetPutsPages([]string{"71", "72"}, []string{"73"})
	mock.SetPutLines("71", `[
		{"id": 1, "order_id": "450.0", "quantity": "5", "item": {"item_number": "123"}, "color": {"color_number": "5"}},
		{"id": 2, "order_id": "450.0", "quantity": 3, "item": {"item_number": "124"}, "color": {"color_number": "5"}}
	]`)
	mock.SetPutLines("72", `[
		{"id": 3, "order_id": 451, "quantity": "2.0", "item": {"item_number": "9876543"}, "color": {"color_number": "123"}}
	]`)
	mock.SetPutLines("73", `[]`)

	collector := newCollector(t, mock, nil)
	ctx := context.Background()

	lines, err := collector.CollectAll(ctx)
	if err != nil {
		t.Fatalf("CollectAll() error = %v", err)
	}

	if len(lines) != 3 {
		t.Fatalf("collected %d lines, want 3", len(lines))
	}
	want := puts.Line{PutID: "71", LineID: "1", PoNumber: "450", ItemNumber: "0000123", ColorNumber: "005", Quantity: 5}
	if lines[0] != want {
		t.Errorf("lines[0] = %+v, want %+v", lines[0], want)
	}

	// One token covers the whole run.
	if got := mock.GetAuthCount(); got != 1 {
		t.Errorf("auth requests = %d, want 1", got)
	}
	// 1 auth + 2 listing pages + 3 line fetches.
	if got := mock.GetRequestCount(); got != 6 {
		t.Errorf("total requests = %d, want 6", got)
	}

	// Park the run in Redis and read it back.
	store, err := cache.NewRedisStore(redisClient)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	entry := &cache.Entry{Lines: lines, FetchedAt: time.Now().UTC()}
	if err := store.Set(ctx, "flow-run", entry, time.Hour); err != nil {
		t.Fatalf("store.Set() error = %v", err)
	}

	cached, err := store.Get(ctx, "flow-run")
	if err != nil {
		t.Fatalf("store.Get() error = %v", err)
	}
	if len(cached.Lines) != len(lines) {
		t.Fatalf("cached %d lines, want %d", len(cached.Lines), len(lines))
	}
	if cached.Lines[0] != lines[0] {
		t.Errorf("cached.Lines[0] = %+v, want %+v", cached.Lines[0], lines[0])
	}

	// Merge the cached lines into a checklist.
	table := sheet.NewTable(
		[]string{"Ordernr.", "Artikelnummer", "Kleurnummer", "PUT", "Received Quantity"},
		[][]string{
			{"450", "123", "5", "", ""},
			{"451", "9876543", "123", "", ""},
			{"999", "111", "1", "", ""},
		},
	)

	summary := reconcile.Reconcile(table, cached.Lines)
	if summary.PutFilled != 2 || summary.QuantityFilled != 2 || summary.Unmatched != 1 {
		t.Errorf("summary = %+v, want 2 puts, 2 quantities, 1 unmatched", summary)
	}

	if got := table.Cell(0, table.Columns.Put); got != "71" {
		t.Errorf("row 0 put = %q, want %q", got, "71")
	}
	if got := table.Cell(0, table.Columns.Received); got != "8" {
		t.Errorf("row 0 received = %q, want %q (5+3 for put 71)", got, "8")
	}
	if got := table.Cell(1, table.Columns.Put); got != "72" {
		t.Errorf("row 1 put = %q, want %q", got, "72")
	}
	if got := table.Cell(1, table.Columns.Received); got != "2" {
		t.Errorf("row 1 received = %q, want %q", got, "2")
	}
	if got := table.Cell(2, table.Columns.Put); got != "" {
		t.Errorf("row 2 put = %q, want it untouched", got)
	}
}

// TestRateLimitRetryRecovers tests that a 429 is retried and the walk
// resumes once the bucket drains.
func TestRateLimitRetryRecovers(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	var mu sync.Mutex
	attempts := 0
	mock.SetHandler("/puts", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()

		if n == 1 {
			w.Header().Set(ratelimit.HeaderBucketSize, "100")
			w.Header().Set(ratelimit.HeaderMarblesInBucket, "100")
			w.Header().Set(ratelimit.HeaderRemainingRequests, "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.Header().Set(ratelimit.HeaderBucketSize, "100")
		w.Header().Set(ratelimit.HeaderMarblesInBucket, "10")
		w.Header().Set(ratelimit.HeaderRemainingRequests, "90")
		w.Header().Set(puts.HeaderPaginationCurrentPage, "1")
		w.Header().Set(puts.HeaderPaginationPageCount, "1")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": "9"}]`))
	})

	collector := newCollector(t, mock, func(cfg *client.Config) {
		cfg.RetryInterval = 50 * time.Millisecond
	})

	ids, err := collector.ListPutIDs(context.Background())
	if err != nil {
		t.Fatalf("ListPutIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "9" {
		t.Errorf("ids = %v, want [9]", ids)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("listing attempts = %d, want 2 (429 then success)", attempts)
	}
}

// TestRateLimitBudgetExhausted tests that a server that keeps rejecting
// surfaces as a hard failure instead of an endless retry loop.
func TestRateLimitBudgetExhausted(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetResponse("/puts", testutil.NewRateLimitResponse())

	collector := newCollector(t, mock, func(cfg *client.Config) {
		cfg.RetryInterval = 10 * time.Millisecond
		cfg.Max429Retries = 2
	})

	_, err := collector.ListPutIDs(context.Background())
	if err == nil {
		t.Fatal("ListPutIDs() expected error, got nil")
	}
	if !errors.Is(err, client.ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted in the chain", err)
	}

	// 1 auth + initial attempt + 2 retries.
	if got := mock.GetRequestCount(); got != 4 {
		t.Errorf("total requests = %d, want 4", got)
	}
}

// TestServerErrorFailsFast tests that 5xx responses are not retried.
func TestServerErrorFailsFast(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetResponse("/puts", testutil.NewServerErrorResponse())

	collector := newCollector(t, mock, nil)

	_, err := collector.ListPutIDs(context.Background())
	if err == nil {
		t.Fatal("ListPutIDs() expected error, got nil")
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want an *client.APIError", err)
	}
	if apiErr.ErrorClass != client.ErrorClassServer {
		t.Errorf("ErrorClass = %q, want %q", apiErr.ErrorClass, client.ErrorClassServer)
	}

	// 1 auth + 1 listing attempt, no retries.
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("total requests = %d, want 2", got)
	}
}

// TestRedisEntryExpires tests that a fetched run disappears from Redis
// after its TTL, not before.
func TestRedisEntryExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store, err := cache.NewRedisStore(redisClient)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	ctx := context.Background()
	entry := &cache.Entry{
		Lines:     []puts.Line{{PutID: "71", LineID: "1", Quantity: 4}},
		FetchedAt: time.Now().UTC(),
	}

	if err := store.Set(ctx, "short-run", entry, time.Second); err != nil {
		t.Fatalf("store.Set() error = %v", err)
	}

	if _, err := store.Get(ctx, "short-run"); err != nil {
		t.Fatalf("store.Get() before expiry error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := store.Get(ctx, "short-run"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("store.Get() after expiry error = %v, want ErrCacheMiss", err)
	}
}

// TestSessionReauthenticatesAfterExpiry tests token refresh against a server
// that hands out short-lived tokens.
func TestSessionReauthenticatesAfterExpiry(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetHandler("/authentication", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token": "short-lived", "expires_in": 1}`))
	})
	mock.SetPutsPages([]string{"71"})
	mock.SetPutLines("71", `[{"id": 1, "order_id": 450, "quantity": 1, "item": {"item_number": "123"}, "color": {"color_number": "5"}}]`)

	collector := newCollector(t, mock, nil)

	lines, err := collector.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("CollectAll() error = %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("collected %d lines, want 1", len(lines))
	}

	// A 1s lifetime sits inside the session's refresh margin, so the token
	// is stale for every request: one auth for the listing, one for the
	// line fetch.
	if got := mock.GetAuthCount(); got != 2 {
		t.Errorf("auth requests = %d, want 2", got)
	}
}
