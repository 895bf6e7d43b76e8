package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
	"github.com/travigo/disruptions/pkg/util"
)

var ErrUnknownEventType = errors.New("unknown event type")

const (
	KindDisruption = "disruption"
	KindDeletion   = "deletion"
	KindTripUpdate = "trip_update"
)

// EventOutcome describes what applying one event did to a snapshot.
type EventOutcome struct {
	Kind        string
	ID          string
	Contributor string
	Effects     []string

	// Applied is false when the event was dropped: unpublishable, filtered
	// out, or deleting an unknown disruption.
	Applied bool
	Err     error

	Disruption *disruptions.DisruptionRecord
	TripUpdate *disruptions.TripUpdateRecord
}

func (o *EventOutcome) Label() string {
	switch {
	case o.Err != nil && !o.Applied:
		return "failed"
	case o.Err != nil:
		return "partial"
	case o.Applied:
		return "applied"
	default:
		return "dropped"
	}
}

// ApplyEvent applies a single realtime event to data.
func ApplyEvent(data *ctdf.Data, event *ctdf.Event, filter *disruptions.Filter) *EventOutcome {
	switch event.Type {
	case ctdf.EventTypeDisruptionUpserted:
		outcome := &EventOutcome{Kind: KindDisruption}

		var record disruptions.DisruptionRecord
		if err := json.Unmarshal(event.Body, &record); err != nil {
			outcome.Err = fmt.Errorf("%w: %w", disruptions.ErrInvalidRecord, err)
			return outcome
		}

		outcome.ID = record.ID
		outcome.Contributor = record.Contributor
		outcome.Disruption = &record
		for _, impact := range record.Impacts {
			outcome.Effects = append(outcome.Effects, impact.Severity.Effect)
		}
		outcome.Effects = util.RemoveDuplicateStrings(outcome.Effects, []string{""})

		outcome.Applied, outcome.Err = disruptions.HandleDisruption(data, &record, filter)
		return outcome
	case ctdf.EventTypeDisruptionDeleted:
		outcome := &EventOutcome{Kind: KindDeletion}

		var deletion ctdf.DisruptionDeletion
		if err := json.Unmarshal(event.Body, &deletion); err != nil {
			outcome.Err = fmt.Errorf("%w: %w", disruptions.ErrInvalidRecord, err)
			return outcome
		}

		outcome.ID = deletion.ID
		outcome.Applied, outcome.Err = disruptions.HandleDelete(data, deletion.ID)
		return outcome
	case ctdf.EventTypeTripUpdated:
		outcome := &EventOutcome{Kind: KindTripUpdate}

		var update disruptions.TripUpdateRecord
		if err := json.Unmarshal(event.Body, &update); err != nil {
			outcome.Err = fmt.Errorf("%w: %w", disruptions.ErrInvalidRecord, err)
			return outcome
		}

		outcome.ID = update.ID
		outcome.Contributor = update.Contributor
		outcome.TripUpdate = &update
		if update.Cancelled {
			outcome.Effects = []string{string(ctdf.EffectNoService)}
		} else {
			outcome.Effects = []string{string(ctdf.EffectSignificantDelays)}
		}

		outcome.Err = disruptions.HandleTripUpdate(data, &update)
		outcome.Applied = outcome.Err == nil
		return outcome
	default:
		return &EventOutcome{Err: fmt.Errorf("%w: %s", ErrUnknownEventType, event.Type)}
	}
}
