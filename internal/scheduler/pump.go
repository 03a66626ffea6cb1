// Package scheduler runs the Timer Pump: a ~1s tick loop that enumerates
// every active game and drives advanceGameOnTimeout, grounded on the
// teacher's GameScheduler.StartPhaseTimeoutChecker ticker loop and
// checkAndTransitionExpiredPhases enumerate-then-transition shape, adapted
// from polling Postgres (`WHERE phase_ends_at < NOW()`) to SMembers over the
// Snapshot Store's `games:active` set, per spec §4.8/§6.1.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/duskfall/hollowvale/internal/game"
	"github.com/duskfall/hollowvale/internal/metrics"
)

// Pump owns the background tick goroutine. The Timer Pump swallows every
// per-game error so one poisoned game never stalls the loop, per spec §7's
// "the Timer Pump swallows all errors" propagation policy.
type Pump struct {
	engine   *game.Engine
	interval time.Duration
	metrics  *metrics.Metrics

	stop chan struct{}
	done chan struct{}
}

func NewPump(engine *game.Engine, interval time.Duration, m *metrics.Metrics) *Pump {
	return &Pump{
		engine:   engine,
		interval: interval,
		metrics:  m,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks the calling goroutine; callers invoke it with `go pump.Run(ctx)`.
func (p *Pump) Run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// Stop requests the pump to exit and blocks until the current tick drains.
func (p *Pump) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Pump) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.TickLatency.Observe(float64(time.Since(start).Milliseconds()))
		}
	}()

	ids, err := p.engine.ListActiveGameIds(ctx)
	if err != nil {
		log.Printf("scheduler: list active games failed: %v", err)
		return
	}
	if p.metrics != nil {
		p.metrics.ActiveGames.Set(float64(len(ids)))
	}

	for _, gameID := range ids {
		result, err := p.engine.AdvanceGameOnTimeout(ctx, gameID)
		if err != nil {
			log.Printf("scheduler: advance %s failed: %v", gameID, err)
			continue
		}
		if result == nil {
			continue
		}
		if p.metrics != nil {
			p.metrics.PhaseTransitions.WithLabelValues(string(result.GamePublic.Phase)).Inc()
		}
	}
}
