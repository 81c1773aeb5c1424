// Package ratelimit implements fixed-window request throttling, backed by
// Redis in production and by process memory for local development.
package ratelimit

import (
	"context"
	"time"
)

type Limiter interface {
	// Allow counts one hit for key. When the hit is refused, retryAfter is
	// the time left in the current window.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}
