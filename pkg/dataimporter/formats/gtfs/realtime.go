package gtfs

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
	"github.com/travigo/disruptions/pkg/dataimporter/formats"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
	"google.golang.org/protobuf/proto"
)

type Realtime struct {
	feed *gtfs.FeedMessage

	// Now is used for alerts without active periods and trips without a
	// start date.
	Now func() time.Time
}

func (r *Realtime) ParseFile(reader io.Reader) error {
	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return fmt.Errorf("failed parsing GTFS-RT protobuf: %w", err)
	}
	r.feed = feed

	return nil
}

func (r *Realtime) Convert(dataset datasets.DataSet) (*formats.Feed, error) {
	if !dataset.SupportedObjects.ServiceAlerts && !dataset.SupportedObjects.TripUpdates {
		return nil, errors.New("this format requires servicealerts or tripupdates to be enabled")
	}
	if r.feed == nil {
		return nil, errors.New("no feed has been parsed")
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	feed := formats.NewFeed()
	updatedAt := now().UTC()
	if timestamp := r.feed.GetHeader().GetTimestamp(); timestamp > 0 {
		updatedAt = time.Unix(int64(timestamp), 0).UTC()
	}

	var skipped int
	for _, entity := range r.feed.GetEntity() {
		if entity.GetIsDeleted() {
			continue
		}

		if alert := entity.GetAlert(); alert != nil && dataset.SupportedObjects.ServiceAlerts {
			record := convertAlert(dataset, entity.GetId(), alert, updatedAt, now().UTC())
			if record == nil {
				skipped++
				continue
			}
			feed.AddDisruption(record, protoFingerprint(alert))
		}

		if tripUpdate := entity.GetTripUpdate(); tripUpdate != nil && dataset.SupportedObjects.TripUpdates {
			record := convertTripUpdate(dataset, tripUpdate, updatedAt, now().UTC())
			if record == nil {
				skipped++
				continue
			}

			fingerprinted := proto.Clone(tripUpdate).(*gtfs.TripUpdate)
			fingerprinted.Timestamp = nil
			feed.AddTripUpdate(record, protoFingerprint(fingerprinted))
		}
	}

	log.Info().
		Str("dataset", dataset.Identifier).
		Int("disruptions", len(feed.Disruptions)).
		Int("tripupdates", len(feed.TripUpdates)).
		Int("skipped", skipped).
		Int("total", len(r.feed.GetEntity())).
		Msg("Converted GTFS-RT feed")

	return feed, nil
}

func convertAlert(dataset datasets.DataSet, entityID string, alert *gtfs.Alert, updatedAt time.Time, now time.Time) *disruptions.DisruptionRecord {
	var entities []disruptions.EntityRecord
	for _, informedEntity := range alert.GetInformedEntity() {
		switch {
		case informedEntity.GetTrip().GetTripId() != "":
			entities = append(entities, disruptions.EntityRecord{Kind: disruptions.EntityKindMetaVJ, URI: informedEntity.GetTrip().GetTripId()})
		case informedEntity.GetStopId() != "":
			entities = append(entities, disruptions.EntityRecord{Kind: disruptions.EntityKindStopPoint, URI: informedEntity.GetStopId()})
		case informedEntity.GetRouteId() != "":
			entities = append(entities, disruptions.EntityRecord{Kind: disruptions.EntityKindLine, URI: informedEntity.GetRouteId()})
		case informedEntity.GetAgencyId() != "":
			entities = append(entities, disruptions.EntityRecord{Kind: disruptions.EntityKindNetwork, URI: informedEntity.GetAgencyId()})
		}
	}
	if len(entities) == 0 {
		log.Debug().Str("entity", entityID).Msg("Alert has no usable informed entity")
		return nil
	}

	var periods []disruptions.PeriodRecord
	for _, activePeriod := range alert.GetActivePeriod() {
		period := disruptions.PeriodRecord{Start: time.Unix(int64(activePeriod.GetStart()), 0).UTC()}
		if activePeriod.GetStart() == 0 {
			period.Start = now
		}
		if activePeriod.GetEnd() > 0 {
			end := time.Unix(int64(activePeriod.GetEnd()), 0).UTC()
			period.End = &end
		}
		periods = append(periods, period)
	}
	if len(periods) == 0 {
		periods = append(periods, disruptions.PeriodRecord{Start: now})
	}

	effect := alertEffect(alert.GetEffect())

	var messages []disruptions.MessageRecord
	if header := translatedText(alert.GetHeaderText()); header != "" {
		messages = append(messages, disruptions.MessageRecord{
			Text:    header,
			Channel: disruptions.ChannelRecord{ID: "title", Name: "title", ContentType: "text/plain", Types: []string{"title"}},
		})
	}
	if description := translatedText(alert.GetDescriptionText()); description != "" {
		messages = append(messages, disruptions.MessageRecord{
			Text:    description,
			Channel: disruptions.ChannelRecord{ID: "description", Name: "description", ContentType: "text/plain", Types: []string{"web"}},
		})
	}

	id := fmt.Sprintf("%s:alert:%s", dataset.Identifier, entityID)

	return &disruptions.DisruptionRecord{
		ID:                id,
		Contributor:       dataset.ContributorOrIdentifier(),
		RTLevel:           ctdf.RTLevelAdapted.String(),
		PublicationPeriod: formats.PublicationPeriod(periods),
		CreatedAt:         updatedAt,
		UpdatedAt:         updatedAt,
		Cause: &disruptions.CauseRecord{
			ID:      "gtfs-rt:" + alert.GetCause().String(),
			Wording: alert.GetCause().String(),
		},
		Impacts: []disruptions.ImpactRecord{{
			ID:        id,
			CreatedAt: updatedAt,
			UpdatedAt: updatedAt,
			Severity: disruptions.SeverityRecord{
				ID:      "gtfs-rt:" + string(effect),
				Wording: alert.GetEffect().String(),
				Effect:  string(effect),
			},
			ApplicationPeriods: periods,
			InformedEntities:   entities,
			Messages:           messages,
		}},
	}
}

func convertTripUpdate(dataset datasets.DataSet, tripUpdate *gtfs.TripUpdate, updatedAt time.Time, now time.Time) *disruptions.TripUpdateRecord {
	trip := tripUpdate.GetTrip()
	tripID := trip.GetTripId()
	if tripID == "" {
		return nil
	}

	referenceDate := now.Format("20060102")
	if trip.GetStartDate() != "" {
		if _, err := time.Parse("20060102", trip.GetStartDate()); err != nil {
			log.Error().Err(err).Str("trip", tripID).Msg("Failed to parse start date")
			return nil
		}
		referenceDate = trip.GetStartDate()
	}

	if tripUpdate.GetTimestamp() > 0 {
		updatedAt = time.Unix(int64(tripUpdate.GetTimestamp()), 0).UTC()
	}

	record := &disruptions.TripUpdateRecord{
		ID:                fmt.Sprintf("%s:trip:%s:%s", dataset.Identifier, referenceDate, tripID),
		Contributor:       dataset.ContributorOrIdentifier(),
		VehicleJourneyURI: tripID,
		ReferenceDate:     referenceDate,
		Cancelled:         trip.GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED,
		UpdatedAt:         updatedAt,
	}
	if record.Cancelled {
		return record
	}

	for _, stopTimeUpdate := range tripUpdate.GetStopTimeUpdate() {
		stop := disruptions.TripUpdateStopRecord{
			StopURI: stopTimeUpdate.GetStopId(),
			Skipped: stopTimeUpdate.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED,
		}

		arrival := stopTimeUpdate.GetArrival().GetTime()
		departure := stopTimeUpdate.GetDeparture().GetTime()
		if arrival == 0 {
			arrival = departure
		}
		if arrival == 0 && !stop.Skipped {
			// Delay-only events need the base schedule to resolve
			return nil
		}
		if arrival > 0 {
			stop.Arrival = time.Unix(arrival, 0).UTC()
		}
		if departure > 0 {
			stop.Departure = time.Unix(departure, 0).UTC()
		}

		record.StopTimes = append(record.StopTimes, stop)
	}

	if len(record.StopTimes) == 0 {
		return nil
	}

	return record
}

func alertEffect(effect gtfs.Alert_Effect) ctdf.Effect {
	switch effect {
	case gtfs.Alert_NO_SERVICE:
		return ctdf.EffectNoService
	case gtfs.Alert_REDUCED_SERVICE:
		return ctdf.EffectReducedService
	case gtfs.Alert_SIGNIFICANT_DELAYS:
		return ctdf.EffectSignificantDelays
	case gtfs.Alert_DETOUR:
		return ctdf.EffectDetour
	case gtfs.Alert_ADDITIONAL_SERVICE:
		return ctdf.EffectAdditionalService
	case gtfs.Alert_MODIFIED_SERVICE:
		return ctdf.EffectModifiedService
	case gtfs.Alert_STOP_MOVED:
		return ctdf.EffectStopMoved
	case gtfs.Alert_UNKNOWN_EFFECT:
		return ctdf.EffectUnknownEffect
	default:
		return ctdf.EffectOtherEffect
	}
}

func translatedText(text *gtfs.TranslatedString) string {
	translations := text.GetTranslation()
	if len(translations) == 0 {
		return ""
	}

	for _, translation := range translations {
		if translation.GetLanguage() == "" || translation.GetLanguage() == "en" {
			return translation.GetText()
		}
	}

	return translations[0].GetText()
}

func protoFingerprint(message proto.Message) string {
	body, err := proto.MarshalOptions{Deterministic: true}.Marshal(message)
	if err != nil {
		return ""
	}

	return formats.HashBytes(body)
}
