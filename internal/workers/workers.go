package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"salahStreakAPI/internal/prayer"
)

// Recomputer refreshes today's state: it closes elapsed days, generates
// today's entries and republishes the widget snapshot.
type Recomputer interface {
	Recompute(ctx context.Context, now time.Time) (*prayer.DayView, error)
}

// StartRecomputeWorker runs one recompute right away and then one per
// interval until ctx is cancelled. The returned WaitGroup is done once the
// loop has exited.
func StartRecomputeWorker(ctx context.Context, r Recomputer, interval time.Duration) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		recompute(ctx, r, interval)
		for {
			select {
			case <-ticker.C:
				recompute(ctx, r, interval)
			case <-ctx.Done():
				log.Info().Msg("recompute worker stopped")
				return
			}
		}
	}()

	return &wg
}

func recompute(ctx context.Context, r Recomputer, interval time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	view, err := r.Recompute(runCtx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("recompute failed")
		return
	}
	log.Debug().
		Str("date", view.Date).
		Str("state", string(view.State)).
		Int("completed", view.CompletedCount).
		Int("streak", view.CurrentStreak).
		Msg("recomputed today")
}
