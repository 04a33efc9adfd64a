package engine

import (
	"context"
	"log"
	"time"
)

// RunWatchdog closes sessions whose prospect has gone silent for longer
// than timeout. Scans every interval until ctx is cancelled. Each timed-out
// session is finalized through the same idempotent path as a normal end, so
// a turn racing the watchdog produces exactly one outcome.
func (e *Engine) RunWatchdog(ctx context.Context, timeout, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[watchdog] started timeout=%s interval=%s", timeout, interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[watchdog] stopped")
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-timeout)
			for _, id := range e.Store.IdleSince(cutoff) {
				log.Printf("[watchdog] silence timeout session=%s", id)
				e.FinalizeSilence(id)
			}
		}
	}
}
