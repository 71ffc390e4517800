package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StatsSource provides the current moderation queue depths for gauge
// metrics. Returning an error skips the update for that cycle.
type StatsSource interface {
	PendingCounts(ctx context.Context) (posts, comments, asks int, err error)
}

// StartCollector launches a goroutine that periodically refreshes the
// queue-depth gauges. It runs every interval until the context is
// cancelled.
func StartCollector(ctx context.Context, src StatsSource, interval time.Duration) {
	collect(ctx, src)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect(ctx, src)
			}
		}
	}()

	log.Info().Dur("interval", interval).Msg("Metrics collector started")
}

func collect(ctx context.Context, src StatsSource) {
	posts, comments, asks, err := src.PendingCounts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to collect pending counts")
		return
	}

	PendingItems.WithLabelValues("posts").Set(float64(posts))
	PendingItems.WithLabelValues("comments").Set(float64(comments))
	PendingItems.WithLabelValues("asks").Set(float64(asks))
}
