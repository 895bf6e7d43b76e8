package realtime

import (
	"context"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
)

// StartCleaner returns deliveries of dead consumers to their queues until
// ctx is done.
func StartCleaner(ctx context.Context, connection rmq.Connection) {
	cleaner := rmq.NewCleaner(connection)

	log.Info().Msg("Starting realtime queue cleaner process")

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			returned, err := cleaner.Clean()
			if err != nil {
				log.Error().Err(err).Msg("Failed to clean")
				continue
			}

			if returned != 0 {
				log.Info().Msgf("Cleaned %d records", returned)
			}
		}
	}
}
