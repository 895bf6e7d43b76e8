package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
)

// Poll imports every realtime dataset on its own interval until ctx is
// cancelled. A failing dataset does not hold back the others.
func (m *Manager) Poll(ctx context.Context, registered []datasets.DataSet) error {
	p := pool.New().WithContext(ctx)

	polled := 0
	for _, dataset := range registered {
		if !dataset.Format.Realtime() {
			continue
		}

		dataset := dataset
		polled++
		p.Go(func(ctx context.Context) error {
			m.pollDataset(ctx, dataset)
			return nil
		})
	}

	log.Info().Int("datasets", polled).Msg("Polling realtime datasets")

	return p.Wait()
}

func (m *Manager) pollDataset(ctx context.Context, dataset datasets.DataSet) {
	ticker := time.NewTicker(dataset.PollInterval())
	defer ticker.Stop()

	for {
		if _, err := m.ImportProtected(ctx, dataset); err != nil {
			log.Error().Err(err).Str("dataset", dataset.Identifier).Msg("Failed to import realtime dataset")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
