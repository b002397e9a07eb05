package ratelimit

import (
	"net/http"
	"strconv"
)

// Response header names carrying the token bucket state.
const (
	HeaderBucketSize        = "X-Bucket-Size"
	HeaderMarblesInBucket   = "X-Marbles-In-Bucket"
	HeaderRemainingRequests = "X-Remaining-Requests"
)

// ParseHeaders extracts the bucket state from response headers. The second
// return value is false when any of the three headers is absent or not an
// integer; callers skip throttling in that case rather than acting on a
// partial snapshot.
func ParseHeaders(headers http.Header) (*BucketState, bool) {
	size, ok := headerInt(headers, HeaderBucketSize)
	if !ok {
		return nil, false
	}

	marbles, ok := headerInt(headers, HeaderMarblesInBucket)
	if !ok {
		return nil, false
	}

	remaining, ok := headerInt(headers, HeaderRemainingRequests)
	if !ok {
		return nil, false
	}

	return &BucketState{
		Size:      size,
		Marbles:   marbles,
		Remaining: remaining,
	}, true
}

func headerInt(headers http.Header, name string) (int, bool) {
	value := headers.Get(name)
	if value == "" {
		return 0, false
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}
