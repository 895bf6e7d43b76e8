package siri_sx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
	"github.com/travigo/disruptions/pkg/dataimporter/formats"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
	"golang.org/x/net/html/charset"
)

type SiriSX struct {
	reader io.Reader

	// Now opens validity periods that carry no start time.
	Now func() time.Time
}

func (s *SiriSX) ParseFile(reader io.Reader) error {
	s.reader = reader

	return nil
}

func (s *SiriSX) Convert(dataset datasets.DataSet) (*formats.Feed, error) {
	if !dataset.SupportedObjects.ServiceAlerts {
		return nil, errors.New("this format requires servicealerts to be enabled")
	}
	if s.reader == nil {
		return nil, errors.New("no document has been parsed")
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	feed := formats.NewFeed()
	var retrievedRecords int64

	d := xml.NewDecoder(s.reader)
	d.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := d.Token()
		if tok == nil || err == io.EOF {
			// EOF means we're done.
			break
		} else if err != nil {
			return nil, fmt.Errorf("error decoding token: %w", err)
		}

		switch ty := tok.(type) {
		case xml.StartElement:
			if ty.Name.Local == "PtSituationElement" {
				var situationElement SituationElement

				if err = d.DecodeElement(&situationElement, &ty); err != nil {
					return nil, fmt.Errorf("error decoding situation: %w", err)
				}
				retrievedRecords += 1

				record := convertSituation(dataset, &situationElement, now().UTC())
				if record != nil {
					feed.AddDisruption(record, formats.Fingerprint(situationElement))
				}
			}
		}
	}

	log.Info().
		Str("dataset", dataset.Identifier).
		Int64("retrieved", retrievedRecords).
		Int("converted", len(feed.Disruptions)).
		Msg("Parsed latest Siri-SX response")

	return feed, nil
}

func convertSituation(dataset datasets.DataSet, situation *SituationElement, now time.Time) *disruptions.DisruptionRecord {
	if situation.SituationNumber == "" {
		return nil
	}
	// Closed situations expire through their validity period
	if strings.EqualFold(situation.Progress, "closed") {
		return nil
	}

	var periods []disruptions.PeriodRecord
	for _, validityPeriod := range situation.ValidityPeriod {
		period, ok := parsePeriod(validityPeriod, now)
		if ok {
			periods = append(periods, period)
		}
	}
	if len(periods) == 0 {
		periods = append(periods, disruptions.PeriodRecord{Start: now})
	}

	publication := formats.PublicationPeriod(periods)
	if window, ok := parsePeriod(situation.PublicationWindow, now); ok && situation.PublicationWindow.StartTime != "" {
		publication = window
	}

	updatedAt := now
	for _, candidate := range []string{situation.VersionedAtTime, situation.CreationTime} {
		if parsed, err := time.Parse(time.RFC3339, candidate); err == nil {
			updatedAt = parsed.UTC()
			break
		}
	}

	id := fmt.Sprintf("%s:situation:%s", dataset.Identifier, situation.SituationNumber)

	var messages []disruptions.MessageRecord
	if situation.Summary != "" {
		messages = append(messages, disruptions.MessageRecord{
			Text:    strings.TrimSpace(situation.Summary),
			Channel: disruptions.ChannelRecord{ID: "title", Name: "title", ContentType: "text/plain", Types: []string{"title"}},
		})
	}
	if situation.Description != "" {
		messages = append(messages, disruptions.MessageRecord{
			Text:    strings.TrimSpace(situation.Description),
			Channel: disruptions.ChannelRecord{ID: "description", Name: "description", ContentType: "text/plain", Types: []string{"web"}},
		})
	}

	record := &disruptions.DisruptionRecord{
		ID:                id,
		Reference:         situation.SituationNumber,
		Contributor:       dataset.ContributorOrIdentifier(),
		RTLevel:           ctdf.RTLevelAdapted.String(),
		PublicationPeriod: publication,
		CreatedAt:         updatedAt,
		UpdatedAt:         updatedAt,
	}
	if situation.MiscellaneousReason != "" {
		record.Cause = &disruptions.CauseRecord{
			ID:      "siri-sx:" + situation.MiscellaneousReason,
			Wording: situation.MiscellaneousReason,
		}
	}
	if situation.InfoURL != "" {
		record.Properties = append(record.Properties, disruptions.PropertyRecord{Key: "info_url", Type: "url", Value: situation.InfoURL})
	}

	for index, consequence := range situation.Consequence {
		entities := consequence.entities()
		if len(entities) == 0 {
			continue
		}

		effect := conditionEffect(consequence.Condition)
		impactMessages := messages
		if consequence.Advice != "" {
			impactMessages = append(append([]disruptions.MessageRecord(nil), messages...), disruptions.MessageRecord{
				Text:    strings.TrimSpace(consequence.Advice),
				Channel: disruptions.ChannelRecord{ID: "advice", Name: "advice", ContentType: "text/plain", Types: []string{"web"}},
			})
		}

		record.Impacts = append(record.Impacts, disruptions.ImpactRecord{
			ID:        fmt.Sprintf("%s:%d", id, index),
			CreatedAt: updatedAt,
			UpdatedAt: updatedAt,
			Severity: disruptions.SeverityRecord{
				ID:      fmt.Sprintf("siri-sx:%s:%s", effect, consequence.Severity),
				Wording: consequence.Severity,
				Effect:  string(effect),
			},
			ApplicationPeriods: periods,
			InformedEntities:   entities,
			Messages:           impactMessages,
		})
	}

	if len(record.Impacts) == 0 {
		log.Debug().Str("situation", situation.SituationNumber).Msg("Situation affects nothing known")
		return nil
	}

	return record
}

func (c Consequence) entities() []disruptions.EntityRecord {
	var entities []disruptions.EntityRecord

	for _, network := range c.AffectedNetworks {
		if len(network.AffectedLine) == 0 && network.NetworkRef != "" {
			entities = append(entities, disruptions.EntityRecord{Kind: disruptions.EntityKindNetwork, URI: network.NetworkRef})
		}
		for _, line := range network.AffectedLine {
			if line.LineRef != "" {
				entities = append(entities, disruptions.EntityRecord{Kind: disruptions.EntityKindLine, URI: line.LineRef})
			}
		}
	}
	for _, stopPoint := range c.AffectedStopPoints {
		if stopPoint.StopPointRef != "" {
			entities = append(entities, disruptions.EntityRecord{Kind: disruptions.EntityKindStopPoint, URI: stopPoint.StopPointRef})
		}
	}
	for _, journey := range c.AffectedJourneys {
		if journey.DatedVehicleJourneyRef != "" {
			entities = append(entities, disruptions.EntityRecord{Kind: disruptions.EntityKindMetaVJ, URI: journey.DatedVehicleJourneyRef})
		}
	}

	return entities
}

func conditionEffect(condition string) ctdf.Effect {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "noservice", "cancelled", "suspended", "closed":
		return ctdf.EffectNoService
	case "reducedservice", "limitedoperation", "partiallyrunning", "intermittentservice":
		return ctdf.EffectReducedService
	case "delayed", "delay", "disrupted", "slowed":
		return ctdf.EffectSignificantDelays
	case "diverted", "diversion", "rerouted":
		return ctdf.EffectDetour
	case "additionalservice", "extraservice", "additionalstop":
		return ctdf.EffectAdditionalService
	case "altered", "changeofplatform", "notstopping", "stopcancelled":
		return ctdf.EffectModifiedService
	case "unknown", "":
		return ctdf.EffectUnknownEffect
	default:
		return ctdf.EffectOtherEffect
	}
}

func parsePeriod(period TimePeriod, now time.Time) (disruptions.PeriodRecord, bool) {
	record := disruptions.PeriodRecord{Start: now}
	if period.StartTime != "" {
		start, err := time.Parse(time.RFC3339, period.StartTime)
		if err != nil {
			return record, false
		}
		record.Start = start.UTC()
	}
	if period.EndTime != "" {
		end, err := time.Parse(time.RFC3339, period.EndTime)
		if err != nil {
			return record, false
		}
		end = end.UTC()
		record.End = &end
	}

	return record, true
}
