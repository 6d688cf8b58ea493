// Package retention prunes old command traces from the store. Traces are an
// execution log, not user data, so they are kept for a bounded window and
// deleted afterwards.
//
// The janitor runs as a background goroutine and respects context cancellation
// for graceful shutdown.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/internal/store"
)

// Janitor periodically deletes traces older than the retention window.
type Janitor struct {
	traces   store.TraceStore
	days     int
	interval time.Duration
}

// NewJanitor builds a janitor from the retention configuration. It returns
// nil when pruning is disabled (TraceDays <= 0).
func NewJanitor(traces store.TraceStore, cfg config.RetentionConfig) *Janitor {
	if cfg.TraceDays <= 0 {
		return nil
	}
	days := cfg.TraceDays
	interval := time.Duration(cfg.SweepHours) * time.Hour
	if interval < time.Hour {
		interval = time.Hour // minimum 1 hour between sweeps
	}
	return &Janitor{traces: traces, days: days, interval: interval}
}

// Start runs the janitor until ctx is canceled. Call it in a goroutine.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Int("retention_days", j.days).
		Dur("interval", j.interval).
		Msg("Trace retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Trace retention janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// sweep performs one pruning pass.
func (j *Janitor) sweep(ctx context.Context) {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -j.days)

	deleted, err := j.traces.DeleteTracesBefore(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("Trace retention sweep failed")
		return
	}
	if deleted > 0 {
		log.Info().
			Int("deleted", deleted).
			Time("cutoff", cutoff).
			Dur("elapsed", time.Since(start)).
			Msg("Trace retention sweep complete")
	}
}
