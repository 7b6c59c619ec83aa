package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Janitor deletes rooms that have had no attached player for longer than
// the idle TTL.
type Janitor struct {
	coordinator *Coordinator
	clock       clockwork.Clock
	idleTTL     time.Duration
	interval    time.Duration
}

func NewJanitor(coordinator *Coordinator, idleTTL, interval time.Duration) *Janitor {
	return &Janitor{
		coordinator: coordinator,
		clock:       coordinator.clock,
		idleTTL:     idleTTL,
		interval:    interval,
	}
}

// Run sweeps on every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	if j.idleTTL <= 0 || j.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if n := j.Sweep(); n > 0 {
				log.Info().Int("rooms", n).Msg("removed idle rooms")
			}
		}
	}
}

// Sweep removes idle rooms once and returns how many were deleted.
func (j *Janitor) Sweep() int {
	now := j.clock.Now()
	removed := 0
	for _, room := range j.coordinator.rooms.Rooms() {
		room.mu.Lock()
		if !room.closed && !room.connected() && now.Sub(room.lastActivity) >= j.idleTTL {
			j.coordinator.closeLocked(room, ReasonIdle)
			removed++
		}
		room.mu.Unlock()
	}
	return removed
}
