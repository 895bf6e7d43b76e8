package disruptions

import (
	"errors"
	"fmt"
	"time"

	"github.com/travigo/disruptions/pkg/ctdf"
)

// TripUpdateDisruption turns a trip update into the disruption record that
// delays or cancels the trip's meta vehicle journey on its reference day.
func TripUpdateDisruption(data *ctdf.Data, update *TripUpdateRecord) (*DisruptionRecord, error) {
	vj, ok := data.PT.VehicleJourneyByURI(update.VehicleJourneyURI)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVJ, update.VehicleJourneyURI)
	}
	mvj, ok := data.PT.MetaVJ(vj.MetaVJ)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no meta vehicle journey", ErrUnknownVJ, update.VehicleJourneyURI)
	}
	referenceDate, err := time.Parse("20060102", update.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	base := vj
	if baseVJs := data.PT.VehicleJourneysOf(mvj, ctdf.RTLevelBase); len(baseVJs) > 0 {
		base = baseVJs[0]
	}
	begin := referenceDate.Add(time.Duration(base.FirstDeparture()) * time.Second)
	end := referenceDate.Add(time.Duration(base.LastArrival()) * time.Second)

	effect, wording := ctdf.EffectSignificantDelays, "trip delayed"
	if update.Cancelled {
		effect, wording = ctdf.EffectNoService, "trip canceled"
	}

	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	impact := ImpactRecord{
		ID:        update.ID,
		CompanyID: update.CompanyID,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
		Severity: SeverityRecord{
			ID:      "trip_update:" + string(effect),
			Wording: wording,
			Effect:  string(effect),
		},
		ApplicationPeriods: []PeriodRecord{{Start: begin, End: &end}},
		InformedEntities:   []EntityRecord{{Kind: EntityKindMetaVJ, URI: mvj.URI}},
	}
	if update.Message != "" {
		impact.Messages = []MessageRecord{{Text: update.Message}}
	}

	if !update.Cancelled {
		for _, stop := range update.StopTimes {
			departure := stop.Departure
			if departure.IsZero() {
				departure = stop.Arrival
			}
			record := StopTimeRecord{
				StopURI:   stop.StopURI,
				Arrival:   int(stop.Arrival.Sub(referenceDate) / time.Second),
				Departure: int(departure.Sub(referenceDate) / time.Second),
			}
			if stop.Arrival.IsZero() {
				record.Arrival, record.Departure = 0, 0
			}
			if stop.Skipped {
				record.ArrivalStatus = string(ctdf.StopTimeStatusDeleted)
				record.DepartureStatus = string(ctdf.StopTimeStatusDeleted)
			} else {
				record.ArrivalStatus = string(ctdf.StopTimeStatusDelayed)
				record.DepartureStatus = string(ctdf.StopTimeStatusDelayed)
			}
			impact.StopTimes = append(impact.StopTimes, record)
		}
	}

	return &DisruptionRecord{
		ID:                update.ID,
		Contributor:       update.Contributor,
		RTLevel:           ctdf.RTLevelRealTime.String(),
		PublicationPeriod: PeriodRecord{Start: begin, End: &end},
		CreatedAt:         updatedAt,
		UpdatedAt:         updatedAt,
		Impacts:           []ImpactRecord{impact},
	}, nil
}

// HandleTripUpdate replaces any previous update of the same id with this one.
func HandleTripUpdate(data *ctdf.Data, update *TripUpdateRecord) error {
	if err := Validate(update); err != nil {
		return err
	}

	record, err := TripUpdateDisruption(data, update)
	if err != nil {
		return err
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

	return errors.Join(errs...)
}
