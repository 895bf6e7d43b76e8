package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/metrics"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
)

// Worker is the single writer of the live snapshot. It consumes batches of
// realtime events from the queue and applies each batch to a fresh clone.
type Worker struct {
	Manager *DataManager
	Filter  *disruptions.Filter

	Store        Store
	Metrics      *metrics.Metrics
	ElasticIndex string
}

type queuedEvent struct {
	delivery rmq.Delivery
	event    *ctdf.Event
}

func (w *Worker) Consume(batch rmq.Deliveries) {
	started := time.Now()

	var queued []queuedEvent
	for _, delivery := range batch {
		var event *ctdf.Event
		if err := json.Unmarshal([]byte(delivery.Payload()), &event); err != nil || event == nil {
			log.Error().Err(err).Msg("Failed to decode realtime event")
			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject realtime event")
			}
			continue
		}

		queued = append(queued, queuedEvent{delivery: delivery, event: event})
	}

	if len(queued) == 0 {
		return
	}

	outcomes := make([]*EventOutcome, len(queued))
	snapshot := w.Manager.Update(func(data *ctdf.Data) {
		for i, item := range queued {
			outcomes[i] = ApplyEvent(data, item.event, w.Filter)
		}
	})

	for i, item := range queued {
		outcome := outcomes[i]
		w.report(item.event, outcome, snapshot)
		w.persist(item.event, outcome)

		var err error
		if outcome.Err != nil && !outcome.Applied && !errors.Is(outcome.Err, disruptions.ErrUnknownVJ) {
			err = item.delivery.Reject()
		} else {
			err = item.delivery.Ack()
		}
		if err != nil {
			log.Error().Err(err).Str("event", item.event.ID).Msg("Failed to acknowledge realtime event")
		}
	}

	if w.Metrics != nil {
		w.Metrics.ObserveBatch(started)
		w.Metrics.ObserveSnapshot(snapshot)
	}

	log.Info().
		Int("events", len(queued)).
		Int("disruptions", snapshot.PT.Disruptions.Len()).
		Str("duration", time.Since(started).String()).
		Msg("Applied realtime batch")
}

func (w *Worker) report(event *ctdf.Event, outcome *EventOutcome, snapshot *ctdf.Data) {
	logger := log.With().Str("event", event.ID).Str("kind", outcome.Kind).Str("id", outcome.ID).Logger()
	if outcome.Err != nil {
		logger.Error().Err(outcome.Err).Bool("applied", outcome.Applied).Msg("Failed to apply realtime event")
	} else {
		logger.Debug().Bool("applied", outcome.Applied).Msg("Handled realtime event")
	}

	if w.Metrics != nil {
		w.Metrics.RecordHandled(outcome.Kind, outcome.Label())
		if outcome.Kind == KindDeletion && outcome.Applied {
			w.Metrics.DisruptionsDeleted.Inc()
		}
	}

	if w.ElasticIndex != "" {
		indexElasticEvent(w.ElasticIndex, newElasticEvent(event, outcome, snapshot))
	}
}

func (w *Worker) persist(event *ctdf.Event, outcome *EventOutcome) {
	if w.Store == nil || !outcome.Applied {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch outcome.Kind {
	case KindDisruption:
		err = w.Store.UpsertDisruption(ctx, outcome.Disruption)
	case KindDeletion:
		err = w.Store.DeleteDisruption(ctx, outcome.ID)
	case KindTripUpdate:
		err = w.Store.UpsertTripUpdate(ctx, outcome.TripUpdate)
	}
	if err != nil {
		log.Error().Err(err).Str("event", event.ID).Str("id", outcome.ID).Msg("Failed to persist realtime record")
	}
}

// Replay applies the stored backlog to the current snapshot in a single
// update. Nothing is persisted again.
func (w *Worker) Replay(ctx context.Context) error {
	if w.Store == nil {
		return nil
	}

	events, err := w.Store.Backlog(ctx)
	if err != nil {
		return err
	}

	var failed int
	snapshot := w.Manager.Update(func(data *ctdf.Data) {
		for _, event := range events {
			outcome := ApplyEvent(data, event, w.Filter)
			if outcome.Err != nil {
				failed++
				log.Warn().Err(outcome.Err).Str("id", outcome.ID).Msg("Failed to replay realtime record")
			}
		}
	})

	if w.Metrics != nil {
		w.Metrics.ObserveSnapshot(snapshot)
	}

	log.Info().Int("records", len(events)).Int("failed", failed).Msg("Replayed realtime backlog")

	return nil
}
