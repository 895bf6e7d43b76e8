package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/elastic_client"
)

type DisruptionElasticEvent struct {
	Timestamp time.Time

	EventID     string
	EventType   ctdf.EventType
	ID          string
	Contributor string
	Effects     []string

	Success    bool
	FailReason string

	BaseVehicleJourneys     int
	AdaptedVehicleJourneys  int
	RealTimeVehicleJourneys int
}

func newElasticEvent(event *ctdf.Event, outcome *EventOutcome, data *ctdf.Data) DisruptionElasticEvent {
	elasticEvent := DisruptionElasticEvent{
		Timestamp:   time.Now(),
		EventID:     event.ID,
		EventType:   event.Type,
		ID:          outcome.ID,
		Contributor: outcome.Contributor,
		Effects:     outcome.Effects,
		Success:     outcome.Err == nil,

		BaseVehicleJourneys:     data.PT.CountVehicleJourneys(ctdf.RTLevelBase),
		AdaptedVehicleJourneys:  data.PT.CountVehicleJourneys(ctdf.RTLevelAdapted),
		RealTimeVehicleJourneys: data.PT.CountVehicleJourneys(ctdf.RTLevelRealTime),
	}
	if outcome.Err != nil {
		elasticEvent.FailReason = outcome.Err.Error()
	}

	return elasticEvent
}

func indexElasticEvent(indexPrefix string, elasticEvent DisruptionElasticEvent) {
	yearNumber, weekNumber := elasticEvent.Timestamp.ISOWeek()
	indexName := fmt.Sprintf("%s-%d-%d", indexPrefix, yearNumber, weekNumber)

	document, err := json.Marshal(elasticEvent)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode elastic event")
		return
	}

	elastic_client.IndexRequest(indexName, elasticEvent.EventID, bytes.NewReader(document))
}
