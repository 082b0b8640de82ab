package worker

import (
	"context"
	"time"
)

// Worker is a background task owned by the server process.
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	// Interval between runs.
	Interval time.Duration
	// MaxAge is how old an upload artifact must be before it is swept.
	MaxAge time.Duration
}
