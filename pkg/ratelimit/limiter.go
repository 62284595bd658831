// Package ratelimit provides sliding-window admission control scoped per
// caller identity. Rejection is an expected, frequent outcome, so it is
// returned as a Decision rather than an error.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// RetryAfter is set on rejection. It is deliberately the full window
	// rather than the time until the oldest entry expires; callers depend
	// on the conservative hint.
	RetryAfter time.Duration
}

// Limiter admits at most limit requests per identity in any trailing
// window. Implementations must make the prune-count-insert sequence atomic
// per identity: two concurrent calls may never both take the last slot.
type Limiter interface {
	// Allow records the request and admits it if the identity has capacity.
	Allow(ctx context.Context, identity string, limit int, window time.Duration) (Decision, error)
	// Remaining returns how many requests the identity could still make,
	// without recording one.
	Remaining(ctx context.Context, identity string, limit int, window time.Duration) (int, error)
	// Reset clears all recorded requests for the identity.
	Reset(ctx context.Context, identity string) error
}
