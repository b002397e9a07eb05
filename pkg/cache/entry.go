package cache

import (
	"time"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
)

// Entry is the cached result of one fetch run.
type Entry struct {
	// Lines are the collected PUT lines.
	Lines []puts.Line `json:"lines"`

	// FetchedAt is when the collection run finished.
	FetchedAt time.Time `json:"fetched_at"`
}
