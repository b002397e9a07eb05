// Package ratelimit models the Itsperfect API request budget. The API meters
// requests with a token bucket ("marbles") and reports the bucket state on
// every response via the X-Bucket-Size, X-Marbles-In-Bucket and
// X-Remaining-Requests headers. Callers parse the state after each response
// and cool down before the next request when the bucket is close to
// exhaustion, so the server never has to reject in the first place.
package ratelimit

import (
	"time"
)

// Thresholds and bounds for cooldown decisions.
const (
	// ExhaustionMargin defines "close to exhaustion": the bucket needs a
	// cooldown when consumed tokens are within this margin of capacity, or
	// when remaining requests are at or below it.
	ExhaustionMargin = 2

	// CooldownPerToken scales the cooldown with bucket pressure. Each token
	// of pressure buys the bucket this much drain time.
	CooldownPerToken = 4 * time.Second

	// MinCooldown is the shortest cooldown ever applied.
	MinCooldown = 1 * time.Second

	// MaxCooldown caps the cooldown so a noisy header can never stall a run.
	MaxCooldown = 10 * time.Second
)

// BucketState is a snapshot of the API token bucket as reported by a single
// response. It is valid only for the moment of that response; the next
// response carries a fresh snapshot.
type BucketState struct {
	// Size is the bucket capacity, from X-Bucket-Size.
	Size int

	// Marbles is the number of tokens currently consumed, from
	// X-Marbles-In-Bucket.
	Marbles int

	// Remaining is the number of requests left before the API starts
	// rejecting, from X-Remaining-Requests.
	Remaining int
}

// NeedsCooldown reports whether the caller should wait before issuing the
// next request.
func (s *BucketState) NeedsCooldown() bool {
	return s.Marbles >= s.Size-ExhaustionMargin || s.Remaining <= ExhaustionMargin
}

// Cooldown returns how long to wait before the next request, derived from
// bucket pressure (consumed minus remaining plus the exhaustion margin) and
// clamped to [MinCooldown, MaxCooldown].
func (s *BucketState) Cooldown() time.Duration {
	pressure := s.Marbles - s.Remaining + ExhaustionMargin
	d := time.Duration(pressure) * CooldownPerToken
	if d < MinCooldown {
		return MinCooldown
	}
	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
}
