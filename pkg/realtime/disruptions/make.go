package disruptions

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/util"
)

var validate = validator.New()

// Validate checks the structure of a record before it is built.
func Validate(record any) error {
	if err := validate.Struct(record); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

// IsPublishable reports whether a publication period overlaps the production period.
func IsPublishable(publication ctdf.TimePeriod, production ctdf.DatePeriod) bool {
	if publication.Begin.After(production.Last()) {
		return false
	}
	if publication.OpenEnded() {
		return true
	}
	return !publication.End.Before(production.Begin) && !publication.Begin.After(publication.End)
}

// MakeDisruption builds the disruption described by record into the holder
// of data. Impacts that cannot be built are left out and reported.
func MakeDisruption(data *ctdf.Data, record *DisruptionRecord) (*ctdf.Disruption, error) {
	level := ctdf.RTLevelAdapted
	if record.RTLevel != "" {
		parsed, err := ctdf.ParseRTLevel(record.RTLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		level = parsed
	}

	holder := data.PT.Disruptions
	disruption := holder.MakeDisruption(record.ID, level)
	disruption.Reference = record.Reference
	disruption.Contributor = record.Contributor
	disruption.PublicationPeriod = record.PublicationPeriod.TimePeriod()
	disruption.CreatedAt = record.CreatedAt
	disruption.UpdatedAt = record.UpdatedAt
	disruption.Note = record.Note

	if record.Cause != nil {
		disruption.Cause = holder.Cause(record.Cause.ID, &ctdf.Cause{
			Wording:  record.Cause.Wording,
			Category: record.Cause.Category,
		})
	}

	disruption.Tags = nil
	tagIDs := make([]string, 0, len(record.Tags))
	for _, tag := range record.Tags {
		tagIDs = append(tagIDs, tag.ID)
	}
	for _, id := range util.RemoveDuplicateStrings(tagIDs, nil) {
		for _, tag := range record.Tags {
			if tag.ID == id {
				disruption.Tags = append(disruption.Tags, holder.Tag(id, &ctdf.Tag{Name: tag.Name}))
				break
			}
		}
	}

	disruption.Properties = nil
	for _, property := range record.Properties {
		disruption.Properties = append(disruption.Properties, ctdf.Property{Key: property.Key, Type: property.Type, Value: property.Value})
	}

	var errs []error
	for i := range record.Impacts {
		impact, err := makeImpact(data, &record.Impacts[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("impact %s: %w", record.Impacts[i].ID, err))
			continue
		}
		if existing := disruption.ImpactByURI(impact.URI); existing != nil {
			log.Warn().Str("disruption", record.ID).Str("impact", impact.URI).Msg("Duplicate impact id, keeping the first one")
			continue
		}
		disruption.AddImpact(impact, holder)
	}

	return disruption, errors.Join(errs...)
}

func makeImpact(data *ctdf.Data, record *ImpactRecord) (*ctdf.Impact, error) {
	pt := data.PT
	holder := pt.Disruptions

	var severity *ctdf.Severity
	if record.Severity.Effect == "" {
		registered, ok := holder.Severity(record.Severity.ID, nil)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSeverity, record.Severity.ID)
		}
		severity = registered
	} else {
		severity, _ = holder.Severity(record.Severity.ID, &ctdf.Severity{
			Wording:   record.Severity.Wording,
			Color:     record.Severity.Color,
			Priority:  record.Severity.Priority,
			Effect:    ctdf.Effect(record.Severity.Effect),
			UpdatedAt: record.UpdatedAt,
		})
	}

	impact := &ctdf.Impact{
		URI:       record.ID,
		CompanyID: record.CompanyID,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Severity:  severity,
	}
	for _, period := range record.ApplicationPeriods {
		impact.ApplicationPeriods = append(impact.ApplicationPeriods, period.TimePeriod())
	}
	for _, message := range record.Messages {
		impact.Messages = append(impact.Messages, ctdf.Message{
			Text: message.Text,
			Channel: ctdf.Channel{
				ID:          message.Channel.ID,
				Name:        message.Channel.Name,
				ContentType: message.Channel.ContentType,
				Types:       message.Channel.Types,
			},
		})
	}
	for _, entity := range record.InformedEntities {
		impact.InformedEntities = append(impact.InformedEntities, ResolveEntity(pt, entity))
	}
	for _, st := range record.StopTimes {
		stopPoint := pt.StopPointIdx(st.StopURI)
		if stopPoint < 0 {
			log.Warn().Str("impact", record.ID).Str("stop_point", st.StopURI).Msg("Unknown stop point in replacement stop times, skipping it")
			continue
		}
		impact.StopTimeUpdates = append(impact.StopTimeUpdates, ctdf.StopTimeUpdate{
			StopTime: ctdf.StopTime{
				StopPoint:      stopPoint,
				ArrivalTime:    st.Arrival,
				DepartureTime:  st.Departure,
				BoardingTime:   st.Departure,
				AlightingTime:  st.Arrival,
				PickUpAllowed:  st.PickUpAllowed == nil || *st.PickUpAllowed,
				DropOffAllowed: st.DropOffAllowed == nil || *st.DropOffAllowed,
			},
			Message:         st.Message,
			ArrivalStatus:   ctdf.StopTimeStatus(st.ArrivalStatus),
			DepartureStatus: ctdf.StopTimeStatus(st.DepartureStatus),
		})
	}

	return impact, nil
}

// HandleDisruption ingests a disruption record: records whose publication
// period misses the production period, or that the filter rejects, are
// dropped and reported as not applied. A disruption with the same id is
// replaced.
func HandleDisruption(data *ctdf.Data, record *DisruptionRecord, filter *Filter) (bool, error) {
	if err := Validate(record); err != nil {
		return false, err
	}

	if !IsPublishable(record.PublicationPeriod.TimePeriod(), data.Meta.ProductionDate) {
		log.Debug().Str("disruption", record.ID).Msg("Publication period outside of production period, dropping")
		return false, nil
	}
	if filter != nil {
		match, err := filter.Match(record)
		if err != nil {
			return false, err
		}
		if !match {
			log.Debug().Str("disruption", record.ID).Msg("Disruption filtered out")
			return false, nil
		}
	}

	var errs []error
	if _, exists := data.PT.Disruptions.Get(record.ID); exists {
		errs = append(errs, DeleteDisruption(data, record.ID))
	}

	disruption, err := MakeDisruption(data, record)
	errs = append(errs, err)
	if disruption != nil {
		errs = append(errs, ApplyDisruption(data, disruption))
	}
	data.LastRealtimeUpdate = time.Now().UTC()

	return disruption != nil, errors.Join(errs...)
}

// HandleDelete removes a disruption and reports whether it existed.
func HandleDelete(data *ctdf.Data, id string) (bool, error) {
	_, exists := data.PT.Disruptions.Get(id)
	err := DeleteDisruption(data, id)
	if exists {
		data.LastRealtimeUpdate = time.Now().UTC()
	}
	return exists, err
}
