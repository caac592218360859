package routing

import (
	"context"
	"log"
	"time"
)

// Sweep runs the deadline scan on a fixed interval. The interval is much
// smaller than the response window, so a silent pharmacy delays an order
// by at most one tick. Any number of sweeps may run concurrently across
// processes; idempotence comes from the engine's guarded writes, not from
// coordination.
type Sweep struct {
	engine   *Engine
	interval time.Duration
}

func NewSweep(engine *Engine, interval time.Duration) *Sweep {
	return &Sweep{engine: engine, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Sweep) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.engine.SweepOnce(ctx); err != nil {
				log.Printf("deadline sweep: %v", err)
			}
		}
	}
}
