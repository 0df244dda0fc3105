package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/satanowski/tvfeed/internal/tvprogram"
)

const (
	DefaultAttempts = 5
	DefaultInterval = 5 * time.Minute
)

// Source produces a full schedule for all configured channels.
type Source interface {
	Fetch(ctx context.Context) ([]tvprogram.Show, error)
}

// FatalStartupError means the initial load never succeeded.
type FatalStartupError struct {
	Attempts int
	Err      error
}

func (e *FatalStartupError) Error() string {
	return fmt.Sprintf("schedule bootstrap failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FatalStartupError) Unwrap() error { return e.Err }

// Refresher is the only writer of the Store.
type Refresher struct {
	Source   Source
	Store    *Store
	Attempts int
	Interval time.Duration
	Now      func() time.Time
	Logger   *log.Logger
}

// Refresh fetches a full schedule and installs it. On error the store keeps
// its previous snapshot.
func (r *Refresher) Refresh(ctx context.Context) error {
	shows, err := r.Source.Fetch(ctx)
	if err != nil {
		return err
	}
	snap := NewSnapshot(shows, r.now())
	r.Store.Replace(snap)
	r.logger().Info("schedule refreshed", "channels", len(snap.Channels), "shows", len(shows))
	return nil
}

// Bootstrap tries Refresh back to back until it succeeds or the attempt
// budget is spent.
func (r *Refresher) Bootstrap(ctx context.Context) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = r.Refresh(ctx); err == nil {
			return nil
		}
		r.logger().Warn("initial schedule load failed", "attempt", i, "attempts", attempts, "err", err)
		if ctx.Err() != nil {
			break
		}
	}
	return &FatalStartupError{Attempts: attempts, Err: err}
}

// Run refreshes on every tick until ctx is done. Failures are logged and the
// previous snapshot keeps being served.
func (r *Refresher) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger().Error("periodic schedule refresh failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *Refresher) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Refresher) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}
