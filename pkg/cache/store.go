package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the run id was not found or has expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cached data could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the line cache shared between the fetch and merge steps.
type Store interface {
	// Get retrieves the entry for a run id.
	// Returns ErrCacheMiss if the id does not exist or has expired.
	Get(ctx context.Context, runID string) (*Entry, error)

	// Set stores an entry under a run id for the given TTL.
	Set(ctx context.Context, runID string, entry *Entry, ttl time.Duration) error

	// Delete removes the entry for a run id.
	Delete(ctx context.Context, runID string) error
}
