package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"string_server/store"
)

// ExpirySweeper archives matches whose chat window elapsed without anyone touching them.
type ExpirySweeper struct {
	Store    store.Store
	Clock    Clock
	Log      zerolog.Logger
	Interval time.Duration
}

// Run sweeps on every tick until ctx is canceled.
func (w *ExpirySweeper) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	w.Log.Info().Dur("interval", interval).Msg("expiry sweeper starting")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Log.Info().Msg("expiry sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.SweepOnce(ctx); err != nil {
				w.Log.Error().Err(err).Msg("expiry sweep")
			}
		}
	}
}

// SweepOnce expires every due match and returns how many it archived.
func (w *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	now := w.Clock.Now()
	var due []string
	err := w.Store.View(ctx, func(tx store.Tx) error {
		matches, err := tx.ListMatches()
		if err != nil {
			return err
		}
		for _, m := range matches {
			if m.ChatExpired(now) {
				due = append(due, m.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, txErr(err)
	}

	archived := 0
	for _, id := range due {
		expired, err := expireIfDue(ctx, w.Store, w.Log, id, now)
		if err != nil {
			w.Log.Error().Err(err).Str("match_id", id).Msg("❌ failed to expire match")
			continue
		}
		if expired {
			archived++
		}
	}
	if archived > 0 {
		w.Log.Info().Int("archived", archived).Msg("✅ expiry sweep finished")
	}
	return archived, nil
}
