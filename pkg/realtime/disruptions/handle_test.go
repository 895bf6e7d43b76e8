package disruptions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/disruptions/pkg/ctdf"
)

func TestIsPublishable(t *testing.T) {
	production := ctdf.NewDatePeriod(productionBegin, productionDays)

	tests := []struct {
		name     string
		period   ctdf.TimePeriod
		expected bool
	}{
		{"inside", ctdf.TimePeriod{Begin: at(1, "00:00"), End: at(2, "00:00")}, true},
		{"overlapping start", ctdf.TimePeriod{Begin: at(-3, "00:00"), End: at(1, "00:00")}, true},
		{"open ended", ctdf.TimePeriod{Begin: at(-30, "00:00")}, true},
		{"before", ctdf.TimePeriod{Begin: at(-3, "00:00"), End: at(-1, "00:00")}, false},
		{"after", ctdf.TimePeriod{Begin: at(8, "00:00"), End: at(9, "00:00")}, false},
		{"open ended after", ctdf.TimePeriod{Begin: at(10, "00:00")}, false},
		{"inverted", ctdf.TimePeriod{Begin: at(3, "00:00"), End: at(1, "00:00")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsPublishable(test.period, production))
		})
	}
}

func TestUnpublishableDisruptionIsDropped(t *testing.T) {
	data := simpleSchedule()
	record := newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	)
	record.PublicationPeriod = period(at(-10, "00:00"), at(-5, "00:00"))

	applied, err := HandleDisruption(data, record, nil)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 0, data.PT.Disruptions.Len())
	assert.Equal(t, "1111111", vjByURI(t, data, "vj:1").VP(ctdf.RTLevelAdapted).String())
}

func TestInvalidRecordIsRejected(t *testing.T) {
	data := simpleSchedule()
	record := newRecord("", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	)

	applied, err := HandleDisruption(data, record, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.False(t, applied)

	record = newRecord("dis", ctdf.EffectNoService, nil, entity(EntityKindMetaVJ, "vj:1"))
	_, err = HandleDisruption(data, record, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestFilter(t *testing.T) {
	filter, err := NewFilter(`Contributor == "keep" && "NO_SERVICE" in Effects`)
	require.NoError(t, err)

	data := simpleSchedule()
	record := newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	)
	record.Contributor = "other"

	applied, err := HandleDisruption(data, record, filter)
	require.NoError(t, err)
	assert.False(t, applied)

	record.Contributor = "keep"
	applied, err = HandleDisruption(data, record, filter)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "1111101", vjByURI(t, data, "vj:1").VP(ctdf.RTLevelAdapted).String())
}

func TestFilterMustCompileToBool(t *testing.T) {
	_, err := NewFilter(`Contributor ==`)
	assert.Error(t, err)

	_, err = NewFilter(`Contributor`)
	assert.Error(t, err)
}

func TestCauseAndTagsArePooled(t *testing.T) {
	data := simpleSchedule()
	first := newRecord("dis1", ctdf.EffectOtherEffect,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindLine, "A"),
	)
	first.Cause = &CauseRecord{ID: "works", Wording: "Works"}
	first.Tags = []TagRecord{{ID: "t1", Name: "rail"}, {ID: "t1", Name: "rail"}}
	second := newRecord("dis2", ctdf.EffectOtherEffect,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindLine, "A"),
	)
	second.Cause = &CauseRecord{ID: "works", Wording: "Track works"}

	mustHandle(t, data, first)
	mustHandle(t, data, second)

	d1, _ := data.PT.Disruptions.Get("dis1")
	d2, _ := data.PT.Disruptions.Get("dis2")
	assert.Same(t, d1.Cause, d2.Cause)
	assert.Equal(t, "Track works", d1.Cause.Wording)
	assert.Len(t, d1.Tags, 1)
	assert.Len(t, data.PT.Lines[0].Impacts, 2)
}

func tripUpdate(cancelled bool) *TripUpdateRecord {
	update := &TripUpdateRecord{
		ID:                "tu",
		VehicleJourneyURI: "vj:1",
		ReferenceDate:     "20120616",
		Cancelled:         cancelled,
		UpdatedAt:         time.Date(2012, time.June, 16, 7, 0, 0, 0, time.UTC),
	}
	if !cancelled {
		update.StopTimes = []TripUpdateStopRecord{
			{StopURI: "stop1", Arrival: at(2, "08:15"), Departure: at(2, "08:16")},
			{StopURI: "stop2", Arrival: at(2, "08:25")},
			{StopURI: "stop3", Arrival: at(2, "08:35")},
		}
	}
	return update
}

func TestTripUpdateDelay(t *testing.T) {
	data := simpleSchedule()
	require.NoError(t, HandleTripUpdate(data, tripUpdate(false)))

	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "1111011", base.VP(ctdf.RTLevelRealTime).String())

	delayed := vjByURI(t, data, "vj:1:modified:0:tu")
	assert.Equal(t, "0000100", delayed.VP(ctdf.RTLevelRealTime).String())
	require.Len(t, delayed.StopTimes, 3)
	assert.Equal(t, 8*3600+15*60, delayed.StopTimes[0].ArrivalTime)
	assert.Equal(t, 8*3600+16*60, delayed.StopTimes[0].DepartureTime)
	assert.Equal(t, 8*3600+25*60, delayed.StopTimes[1].DepartureTime)

	disruption, ok := data.PT.Disruptions.Get("tu")
	require.True(t, ok)
	assert.Equal(t, ctdf.RTLevelRealTime, disruption.RTLevel)
	require.Len(t, disruption.Impacts, 1)
	assert.Equal(t, ctdf.EffectSignificantDelays, disruption.Impacts[0].Effect())
	assert.Equal(t, at(2, "08:11"), disruption.Impacts[0].ApplicationPeriods[0].Begin)
	assert.Equal(t, at(2, "08:30"), disruption.Impacts[0].ApplicationPeriods[0].End)
}

func TestTripUpdateCancellationReplacesDelay(t *testing.T) {
	data := simpleSchedule()
	require.NoError(t, HandleTripUpdate(data, tripUpdate(false)))
	require.NoError(t, HandleTripUpdate(data, tripUpdate(true)))

	assert.Len(t, data.PT.VehicleJourneys, 1)
	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "1111011", base.VP(ctdf.RTLevelRealTime).String())
	assert.Equal(t, 1, data.PT.Disruptions.Len())
}

func TestTripUpdateSkippedStop(t *testing.T) {
	data := simpleSchedule()
	update := tripUpdate(false)
	update.StopTimes[1].Skipped = true
	require.NoError(t, HandleTripUpdate(data, update))

	delayed := vjByURI(t, data, "vj:1:modified:0:tu")
	require.Len(t, delayed.StopTimes, 2)
	assert.Equal(t, data.PT.StopPointIdx("stop3"), delayed.StopTimes[1].StopPoint)
}

func TestTripUpdateUnknownVehicleJourney(t *testing.T) {
	data := simpleSchedule()
	update := tripUpdate(true)
	update.VehicleJourneyURI = "vj:404"

	assert.ErrorIs(t, HandleTripUpdate(data, update), ErrUnknownVJ)
	assert.Equal(t, 0, data.PT.Disruptions.Len())
}
