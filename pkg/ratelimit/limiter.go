// Package ratelimit throttles uploads per client. Limiters only ever see
// client keys and counters, never document content.
package ratelimit

import (
	"context"
	"time"
)

// Window is the period PerMinute limits apply to.
const Window = time.Minute

// Limiter decides whether one more request from key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited allows everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
