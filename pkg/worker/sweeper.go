package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/feichai0017/policy-decoder/pkg/logger"
)

const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultMaxAge        = 10 * time.Minute
)

// Cleaner removes artifacts older than a threshold.
type Cleaner interface {
	CleanupBefore(ctx context.Context, threshold time.Time) (int, error)
}

// TempSweeper periodically deletes upload artifacts left behind by requests
// that never reached extraction, for example after a crash.
type TempSweeper struct {
	cleaner  Cleaner
	interval time.Duration
	maxAge   time.Duration
	logger   logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Worker = (*TempSweeper)(nil)

func NewTempSweeper(cfg Config, cleaner Cleaner, log logger.Logger) *TempSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return &TempSweeper{
		cleaner:  cleaner,
		interval: cfg.Interval,
		maxAge:   cfg.MaxAge,
		logger:   log.Named("sweeper"),
	}
}

// Start runs one sweep immediately and then one per interval until Stop is
// called or ctx is done. It returns without blocking.
func (w *TempSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return errors.New("sweeper already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, w.done)

	w.logger.Info("Sweeper started",
		logger.Duration("interval", w.interval),
		logger.Duration("maxAge", w.maxAge),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (w *TempSweeper) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	w.logger.Info("Sweeper stopped")
	return nil
}

// SweepOnce deletes artifacts older than maxAge.
func (w *TempSweeper) SweepOnce(ctx context.Context) (int, error) {
	removed, err := w.cleaner.CleanupBefore(ctx, time.Now().Add(-w.maxAge))
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("Sweep failed", logger.Error(err))
	}
	return removed, err
}

func (w *TempSweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}
