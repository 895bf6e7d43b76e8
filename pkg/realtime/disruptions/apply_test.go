package disruptions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/disruptions/pkg/ctdf"
)

func simpleSchedule() *ctdf.Data {
	b := newBuilder()
	b.VJ("A", "1111111").URI("vj:1").St("stop1", "08:10", "08:11").St("stop2", "08:20", "08:21").St("stop3", "08:30", "08:31").Make()
	return b.Finish()
}

func TestCancelMetaVJ(t *testing.T) {
	data := simpleSchedule()
	record := newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	)

	mustHandle(t, data, record)

	vj := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1111111", vj.VP(ctdf.RTLevelBase).String())
	assert.Equal(t, "1111101", vj.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "1111101", vj.VP(ctdf.RTLevelRealTime).String())
	assert.Len(t, data.PT.VehicleJourneys, 1)

	mvj := mvjByURI(t, data, "vj:1")
	holder := data.PT.Disruptions
	require.Len(t, mvj.ModifiedBy.Live(holder), 1)
	assert.Equal(t, "dis:impact", mvj.ModifiedBy.Live(holder)[0].URI)
	assert.Len(t, mvj.Impacts.Live(holder), 1)

	mustDelete(t, data, "dis")

	assert.Equal(t, "1111111", vj.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "1111111", vj.VP(ctdf.RTLevelRealTime).String())
	assert.Empty(t, mvj.ModifiedBy)
	assert.Empty(t, mvj.Impacts)
	assert.Equal(t, 0, holder.Len())
	assert.Empty(t, holder.WeakImpacts())
}

func TestCancelWithSeveralApplicationPeriods(t *testing.T) {
	data := simpleSchedule()
	record := newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{
			period(at(1, "00:00"), at(2, "00:00")),
			period(at(4, "00:00"), at(6, "00:00")),
		},
		entity(EntityKindMetaVJ, "vj:1"),
	)

	mustHandle(t, data, record)

	vj := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1001101", vj.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "1111111", vj.VP(ctdf.RTLevelBase).String())
}

func TestCancelOnlyTouchesRunningDays(t *testing.T) {
	data := simpleSchedule()
	// ends before the journey leaves on day 3
	record := newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(3, "00:00"), at(3, "08:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	)

	mustHandle(t, data, record)

	assert.Equal(t, "1111111", vjByURI(t, data, "vj:1").VP(ctdf.RTLevelAdapted).String())
}

func TestApplyingTwiceChangesNothing(t *testing.T) {
	data := simpleSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	))

	disruption, ok := data.PT.Disruptions.Get("dis")
	require.True(t, ok)
	require.NoError(t, ApplyDisruption(data, disruption))

	vj := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1111101", vj.VP(ctdf.RTLevelAdapted).String())
	mvj := mvjByURI(t, data, "vj:1")
	assert.Len(t, mvj.ModifiedBy, 1)
	assert.Len(t, mvj.Impacts, 1)
}

func TestUpdateReplacesPreviousVersion(t *testing.T) {
	data := simpleSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	))
	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(3, "00:00"), at(4, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	))

	vj := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1110111", vj.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, 1, data.PT.Disruptions.Len())
	assert.Len(t, data.PT.Disruptions.WeakImpacts(), 1)
}

func TestDeleteReplaysStackedDisruptions(t *testing.T) {
	data := simpleSchedule()
	mustHandle(t, data, newRecord("dis1", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	))
	mustHandle(t, data, newRecord("dis2", ctdf.EffectNoService,
		[]PeriodRecord{period(at(3, "00:00"), at(4, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	))

	vj := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1110101", vj.VP(ctdf.RTLevelAdapted).String())

	mustDelete(t, data, "dis1")

	assert.Equal(t, "1110111", vj.VP(ctdf.RTLevelAdapted).String())
	mvj := mvjByURI(t, data, "vj:1")
	live := mvj.ModifiedBy.Live(data.PT.Disruptions)
	require.Len(t, live, 1)
	assert.Equal(t, "dis2:impact", live[0].URI)
}

func TestDeleteUnknownDisruption(t *testing.T) {
	data := simpleSchedule()

	existed, err := HandleDelete(data, "nope")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestRemoveStopPoint(t *testing.T) {
	data := simpleSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(3, "00:00"))},
		entity(EntityKindStopPoint, "stop2"),
	))

	require.Len(t, data.PT.VehicleJourneys, 2)
	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelBase).String())
	assert.Equal(t, "1111001", base.VP(ctdf.RTLevelAdapted).String())

	derived := vjByURI(t, data, "vj:1:Adapted:0:dis")
	assert.Equal(t, ctdf.RTLevelAdapted, derived.RealtimeLevel)
	assert.Equal(t, "0000000", derived.VP(ctdf.RTLevelBase).String())
	assert.Equal(t, "0000110", derived.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "0000110", derived.VP(ctdf.RTLevelRealTime).String())
	require.Len(t, derived.StopTimes, 2)
	assert.Equal(t, data.PT.StopPointIdx("stop1"), derived.StopTimes[0].StopPoint)
	assert.Equal(t, data.PT.StopPointIdx("stop3"), derived.StopTimes[1].StopPoint)
	assert.Equal(t, 1, data.PT.CountVehicleJourneys(ctdf.RTLevelAdapted))

	stop2 := data.PT.StopPoints[data.PT.StopPointIdx("stop2")]
	assert.Len(t, stop2.Impacts, 1)

	mustDelete(t, data, "dis")

	require.Len(t, data.PT.VehicleJourneys, 1)
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelAdapted).String())
	_, ok := data.PT.VehicleJourneyByURI("vj:1:Adapted:0:dis")
	assert.False(t, ok)
	assert.Empty(t, stop2.Impacts)
}

func TestRemoveStopArea(t *testing.T) {
	b := newBuilder()
	b.StopArea("area2", "stop2")
	b.VJ("A", "1111111").URI("vj:1").St("stop1", "08:10", "").St("stop2", "08:20", "").St("stop3", "08:30", "").Make()
	data := b.Finish()

	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(0, "00:00"), at(7, "00:00"))},
		entity(EntityKindStopArea, "area2"),
	))

	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "0000000", base.VP(ctdf.RTLevelAdapted).String())
	derived := vjByURI(t, data, "vj:1:Adapted:0:dis")
	assert.Equal(t, "1111111", derived.VP(ctdf.RTLevelAdapted).String())
	assert.Len(t, derived.StopTimes, 2)
	assert.Len(t, data.PT.StopAreas[data.PT.StopAreaIdx("area2")].Impacts, 1)
}

func TestRemoveDepartureStopAfterMidnight(t *testing.T) {
	b := newBuilder()
	b.VJ("A", "1111111").URI("vj:1").St("stop1", "23:50", "").St("stop2", "24:10", "").St("stop3", "24:30", "").Make()
	data := b.Finish()

	mustHandle(t, data, newRecord("dis1", ctdf.EffectNoService,
		[]PeriodRecord{period(at(2, "00:00"), at(3, "00:00"))},
		entity(EntityKindStopPoint, "stop1"),
	))

	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1111011", base.VP(ctdf.RTLevelAdapted).String())

	derived := vjByURI(t, data, "vj:1:Adapted:0:dis1")
	assert.Equal(t, 1, derived.Shift)
	assert.Equal(t, "0001000", derived.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, derived.StopTimes, 2)
	assert.Equal(t, 10*60, derived.StopTimes[0].ArrivalTime)
	assert.Equal(t, 30*60, derived.StopTimes[1].ArrivalTime)

	// stop2 is reached on day 3 by the journey derived above
	mustHandle(t, data, newRecord("dis2", ctdf.EffectNoService,
		[]PeriodRecord{period(at(3, "00:00"), at(4, "00:00"))},
		entity(EntityKindStopPoint, "stop2"),
	))

	require.Len(t, data.PT.VehicleJourneys, 2)
	_, ok := data.PT.VehicleJourneyByURI("vj:1:Adapted:0:dis1")
	assert.False(t, ok)

	stacked := vjByURI(t, data, "vj:1:Adapted:1:dis1:dis2")
	assert.Equal(t, 1, stacked.Shift)
	assert.Equal(t, "0001000", stacked.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, stacked.StopTimes, 1)
	assert.Equal(t, data.PT.StopPointIdx("stop3"), stacked.StopTimes[0].StopPoint)
	assert.Equal(t, 30*60, stacked.StopTimes[0].ArrivalTime)

	mustDelete(t, data, "dis1")

	require.Len(t, data.PT.VehicleJourneys, 2)
	replayed := vjByURI(t, data, "vj:1:Adapted:0:dis2")
	assert.Equal(t, 0, replayed.Shift)
	assert.Equal(t, "0000100", replayed.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, replayed.StopTimes, 2)
	assert.Equal(t, 23*3600+50*60, replayed.StopTimes[0].ArrivalTime)
	assert.Equal(t, "1111011", base.VP(ctdf.RTLevelAdapted).String())
	for i, vj := range data.PT.VehicleJourneys {
		assert.Equal(t, i, vj.Idx)
	}
}

func lineSectionSchedule() *ctdf.Data {
	b := newBuilder()
	b.VJ("A", "1111111").URI("vj:1").St("s1", "08:00", "").St("s2", "08:10", "").St("s3", "08:20", "").St("s4", "08:30", "").Make()
	b.VJ("A", "1111111").URI("vj:2").Route("A:1").St("s4", "09:00", "").St("s3", "09:10", "").St("s2", "09:20", "").St("s1", "09:30", "").Make()
	b.VJ("B", "1111111").URI("vj:3").St("s2", "10:00", "").St("s3", "10:10", "").Make()
	return b.Finish()
}

func lineSectionEntity(line, start, end string, routes ...string) EntityRecord {
	return EntityRecord{
		Kind: EntityKindLineSection,
		LineSection: &LineSectionRecord{
			LineURI:          line,
			StartStopAreaURI: start,
			EndStopAreaURI:   end,
			RouteURIs:        routes,
		},
	}
}

func TestLineSection(t *testing.T) {
	data := lineSectionSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(2, "00:00"), at(4, "00:00"))},
		lineSectionEntity("A", "s2", "s3"),
	))

	vj1 := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1110011", vj1.VP(ctdf.RTLevelAdapted).String())
	derived := vjByURI(t, data, "vj:1:Adapted:0:dis")
	assert.Equal(t, "0001100", derived.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, derived.StopTimes, 2)
	assert.Equal(t, data.PT.StopPointIdx("s1"), derived.StopTimes[0].StopPoint)
	assert.Equal(t, data.PT.StopPointIdx("s4"), derived.StopTimes[1].StopPoint)

	// the reverse route never reaches s3 after s2
	assert.Equal(t, "1111111", vjByURI(t, data, "vj:2").VP(ctdf.RTLevelAdapted).String())
	// another line
	assert.Equal(t, "1111111", vjByURI(t, data, "vj:3").VP(ctdf.RTLevelAdapted).String())

	pt := data.PT
	assert.Len(t, pt.Lines[pt.LineIdx("A")].Impacts, 1)
	assert.Len(t, pt.StopPoints[pt.StopPointIdx("s2")].Impacts, 1)
	assert.Len(t, pt.StopPoints[pt.StopPointIdx("s3")].Impacts, 1)
	assert.Empty(t, pt.StopPoints[pt.StopPointIdx("s1")].Impacts)

	mustDelete(t, data, "dis")

	assert.Len(t, pt.VehicleJourneys, 3)
	assert.Equal(t, "1111111", vj1.VP(ctdf.RTLevelAdapted).String())
	assert.Empty(t, pt.Lines[pt.LineIdx("A")].Impacts)
	assert.Empty(t, pt.StopPoints[pt.StopPointIdx("s2")].Impacts)
}

func TestLineSectionCoveringTheWholeJourneyCancelsIt(t *testing.T) {
	data := lineSectionSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(2, "00:00"), at(3, "00:00"))},
		lineSectionEntity("B", "s2", "s3"),
	))

	assert.Equal(t, "1111011", vjByURI(t, data, "vj:3").VP(ctdf.RTLevelAdapted).String())
	assert.Len(t, data.PT.VehicleJourneys, 3)
}

func TestLineSectionWithUnknownRoutesIsIgnored(t *testing.T) {
	data := lineSectionSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(2, "00:00"), at(3, "00:00"))},
		lineSectionEntity("A", "s2", "s3", "B:0", "nowhere"),
	))

	assert.Equal(t, "1111111", vjByURI(t, data, "vj:1").VP(ctdf.RTLevelAdapted).String())
	assert.Len(t, data.PT.VehicleJourneys, 3)
	assert.Empty(t, data.PT.Lines[data.PT.LineIdx("A")].Impacts)
}

func TestCancelNetwork(t *testing.T) {
	data := lineSectionSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(0, "00:00"), at(7, "00:00"))},
		entity(EntityKindNetwork, "base_network"),
	))

	for _, vj := range data.PT.VehicleJourneys {
		assert.Equal(t, "0000000", vj.VP(ctdf.RTLevelAdapted).String(), vj.URI)
		assert.Equal(t, "1111111", vj.VP(ctdf.RTLevelBase).String(), vj.URI)
	}
	assert.Len(t, data.PT.VehicleJourneys, 3)

	mustDelete(t, data, "dis")

	for _, vj := range data.PT.VehicleJourneys {
		assert.Equal(t, "1111111", vj.VP(ctdf.RTLevelAdapted).String(), vj.URI)
	}
}

func TestCancelRouteOnly(t *testing.T) {
	data := lineSectionSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(0, "00:00"), at(7, "00:00"))},
		entity(EntityKindRoute, "A:1"),
	))

	assert.Equal(t, "1111111", vjByURI(t, data, "vj:1").VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "0000000", vjByURI(t, data, "vj:2").VP(ctdf.RTLevelAdapted).String())
	assert.Len(t, data.PT.Routes[data.PT.RouteIdx("A:1")].Impacts, 1)
}

func delayedSchedule() *ctdf.Data {
	b := newBuilder()
	b.Company("c2")
	b.VJ("A", "1111111").URI("vj:1").Company("c1").PhysicalMode("bus").
		Attributes(ctdf.VehicleJourneyAttributes{Headsign: "Airport", WheelchairAccessible: true}).
		StBoarding("s1", "08:10", "08:11", "08:05", "").
		St("s2", "08:20", "08:21").
		Make()
	return b.Finish()
}

func delayRecord() *DisruptionRecord {
	record := newRecord("dis", ctdf.EffectSignificantDelays,
		[]PeriodRecord{period(at(2, "08:00"), at(2, "09:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	)
	record.RTLevel = "RealTime"
	record.Impacts[0].CompanyID = "c2"
	record.Impacts[0].StopTimes = []StopTimeRecord{
		{StopURI: "s1", Arrival: 31200, Departure: 31260},
		{StopURI: "s2", Arrival: 31800, Departure: 31860},
	}
	return record
}

func TestDelayCreatesRealtimeJourney(t *testing.T) {
	data := delayedSchedule()
	mustHandle(t, data, delayRecord())

	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelBase).String())
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "1111011", base.VP(ctdf.RTLevelRealTime).String())

	delayed := vjByURI(t, data, "vj:1:modified:0:dis")
	assert.Equal(t, ctdf.RTLevelRealTime, delayed.RealtimeLevel)
	assert.Equal(t, "0000000", delayed.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "0000100", delayed.VP(ctdf.RTLevelRealTime).String())
	assert.Equal(t, base.Route, delayed.Route)
	assert.Equal(t, "vj:1", delayed.Name)
	assert.Equal(t, "Airport", delayed.Attributes.Headsign)
	assert.True(t, delayed.Attributes.WheelchairAccessible)
	assert.Equal(t, base.PhysicalMode, delayed.PhysicalMode)
	assert.Equal(t, data.PT.CompanyIdx("c2"), delayed.Company)

	require.Len(t, delayed.StopTimes, 2)
	assert.Equal(t, 31200, delayed.StopTimes[0].ArrivalTime)
	assert.Equal(t, 31260-360, delayed.StopTimes[0].BoardingTime)
	assert.Equal(t, 31200, delayed.StopTimes[0].AlightingTime)
	assert.Equal(t, 31860, delayed.StopTimes[1].BoardingTime)

	disruption, _ := data.PT.Disruptions.Get("dis")
	require.NoError(t, ApplyDisruption(data, disruption))
	assert.Equal(t, 1, data.PT.CountVehicleJourneys(ctdf.RTLevelRealTime))

	mustDelete(t, data, "dis")

	assert.Len(t, data.PT.VehicleJourneys, 1)
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelRealTime).String())
}

func TestDelayWithoutStopTimesOnLineDoesNothing(t *testing.T) {
	data := delayedSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectSignificantDelays,
		[]PeriodRecord{period(at(0, "00:00"), at(7, "00:00"))},
		entity(EntityKindLine, "A"),
	))

	assert.Len(t, data.PT.VehicleJourneys, 1)
	base := vjByURI(t, data, "vj:1")
	for _, level := range ctdf.RTLevels {
		assert.Equal(t, "1111111", base.VP(level).String())
	}
	assert.Len(t, data.PT.Lines[data.PT.LineIdx("A")].Impacts, 1)
	assert.Empty(t, mvjByURI(t, data, "vj:1").ModifiedBy)
}

func TestInformationOnlyImpactIsAttached(t *testing.T) {
	data := simpleSchedule()
	mustHandle(t, data, newRecord("dis", ctdf.EffectOtherEffect,
		[]PeriodRecord{period(at(0, "00:00"), at(7, "00:00"))},
		entity(EntityKindStopPoint, "stop1"),
		entity(EntityKindStopArea, "nowhere"),
	))

	pt := data.PT
	assert.Len(t, pt.VehicleJourneys, 1)
	assert.Len(t, pt.StopPoints[pt.StopPointIdx("stop1")].Impacts, 1)

	disruption, _ := pt.Disruptions.Get("dis")
	require.Len(t, disruption.Impacts[0].InformedEntities, 2)
	assert.IsType(t, ctdf.UnknownEntity{}, disruption.Impacts[0].InformedEntities[1])
}

func TestUnknownSeverityIsReported(t *testing.T) {
	data := simpleSchedule()
	record := newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	)
	record.Impacts[0].Severity = SeverityRecord{ID: "unregistered"}

	applied, err := HandleDisruption(data, record, nil)
	assert.True(t, applied)
	assert.ErrorIs(t, err, ErrUnknownSeverity)
	assert.Equal(t, "1111111", vjByURI(t, data, "vj:1").VP(ctdf.RTLevelAdapted).String())
}

func TestModifyingImpactAtBaseLevelIsRejected(t *testing.T) {
	data := simpleSchedule()
	record := newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	)
	record.RTLevel = "Base"

	_, err := HandleDisruption(data, record, nil)
	assert.ErrorIs(t, err, ErrUnsupportedRTLevel)
	vj := vjByURI(t, data, "vj:1")
	for _, level := range ctdf.RTLevels {
		assert.Equal(t, "1111111", vj.VP(level).String())
	}
}

func TestImpactWithoutSeverityIsSkipped(t *testing.T) {
	data := simpleSchedule()
	holder := data.PT.Disruptions
	disruption := holder.MakeDisruption("dis", ctdf.RTLevelAdapted)
	disruption.AddImpact(&ctdf.Impact{
		URI:                "orphan",
		ApplicationPeriods: []ctdf.TimePeriod{{Begin: at(0, "00:00")}},
		InformedEntities:   []ctdf.InformedEntity{ctdf.StopPointEntity{StopPoint: 0}},
	}, holder)

	err := ApplyDisruption(data, disruption)
	assert.ErrorIs(t, err, ErrUnknownSeverity)
	assert.Empty(t, data.PT.StopPoints[0].Impacts)
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	data := simpleSchedule()
	mustHandle(t, data, newRecord("dis1", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(2, "00:00"))},
		entity(EntityKindStopPoint, "stop2"),
	))

	clone := data.Clone()
	mustDelete(t, clone, "dis1")
	mustHandle(t, clone, newRecord("dis2", ctdf.EffectNoService,
		[]PeriodRecord{period(at(4, "00:00"), at(5, "00:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	))

	assert.Len(t, data.PT.VehicleJourneys, 2)
	assert.Equal(t, "1111101", vjByURI(t, data, "vj:1").VP(ctdf.RTLevelAdapted).String())
	_, ok := data.PT.Disruptions.Get("dis1")
	assert.True(t, ok)

	assert.Len(t, clone.PT.VehicleJourneys, 1)
	assert.Equal(t, "1101111", vjByURI(t, clone, "vj:1").VP(ctdf.RTLevelAdapted).String())
	_, ok = clone.PT.Disruptions.Get("dis1")
	assert.False(t, ok)
}

func TestDeleteStackedDisruptionsInReverseOrder(t *testing.T) {
	data := simpleSchedule()
	mustHandle(t, data, newRecord("dis1", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(3, "00:00"))},
		entity(EntityKindStopPoint, "stop2"),
	))
	mustHandle(t, data, newRecord("dis2", ctdf.EffectNoService,
		[]PeriodRecord{period(at(1, "00:00"), at(3, "00:00"))},
		entity(EntityKindStopPoint, "stop3"),
	))

	base := vjByURI(t, data, "vj:1")
	require.Len(t, data.PT.VehicleJourneys, 2)
	stacked := vjByURI(t, data, "vj:1:Adapted:1:dis1:dis2")
	assert.Equal(t, "0000110", stacked.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, stacked.StopTimes, 1)
	assert.Equal(t, data.PT.StopPointIdx("stop1"), stacked.StopTimes[0].StopPoint)

	mustDelete(t, data, "dis2")

	require.Len(t, data.PT.VehicleJourneys, 2)
	assert.Equal(t, "1111001", base.VP(ctdf.RTLevelAdapted).String())
	replayed := vjByURI(t, data, "vj:1:Adapted:0:dis1")
	assert.Equal(t, "0000110", replayed.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, replayed.StopTimes, 2)
	assert.Equal(t, data.PT.StopPointIdx("stop3"), replayed.StopTimes[1].StopPoint)
	assert.Empty(t, data.PT.StopPoints[data.PT.StopPointIdx("stop3")].Impacts)

	mustDelete(t, data, "dis1")

	require.Len(t, data.PT.VehicleJourneys, 1)
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelRealTime).String())
	assert.Empty(t, mvjByURI(t, data, "vj:1").ModifiedBy.Live(data.PT.Disruptions))
	assert.Empty(t, data.PT.StopPoints[data.PT.StopPointIdx("stop2")].Impacts)
}

func TestRemoveIntermediateStopAfterMidnight(t *testing.T) {
	b := newBuilder()
	b.VJ("A", "1111111").URI("vj:1").St("stop1", "23:00", "").St("stop2", "24:02", "").St("stop3", "25:00", "").Make()
	data := b.Finish()

	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(3, "00:00"), at(3, "00:05"))},
		entity(EntityKindStopPoint, "stop2"),
	))

	// only the trip leaving on day 2 reaches stop2 during the closure
	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1111011", base.VP(ctdf.RTLevelAdapted).String())

	derived := vjByURI(t, data, "vj:1:Adapted:0:dis")
	assert.Equal(t, 0, derived.Shift)
	assert.Equal(t, "0000100", derived.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, derived.StopTimes, 2)
	assert.Equal(t, 23*3600, derived.StopTimes[0].ArrivalTime)
	assert.Equal(t, 25*3600, derived.StopTimes[1].ArrivalTime)

	mustDelete(t, data, "dis")

	require.Len(t, data.PT.VehicleJourneys, 1)
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelAdapted).String())
}

func delayMessage(id string, stopTimes ...StopTimeRecord) *DisruptionRecord {
	record := newRecord(id, ctdf.EffectSignificantDelays,
		[]PeriodRecord{period(at(2, "23:00"), at(3, "01:00"))},
		entity(EntityKindMetaVJ, "vj:1"),
	)
	record.RTLevel = "RealTime"
	record.Impacts[0].StopTimes = stopTimes
	return record
}

func realtimeClosure(id, stop string, begin, end time.Time) *DisruptionRecord {
	record := newRecord(id, ctdf.EffectNoService,
		[]PeriodRecord{period(begin, end)},
		entity(EntityKindStopPoint, stop),
	)
	record.RTLevel = "RealTime"
	return record
}

func TestRemoveStopOfJourneyDelayedAfterMidnight(t *testing.T) {
	b := newBuilder()
	b.VJ("A", "1111111").URI("vj:1").St("stop1", "23:00", "").St("stop2", "24:15", "").St("stop3", "24:45", "").Make()
	data := b.Finish()

	// the trip of day 2 leaves at 00:05 on day 3
	mustHandle(t, data, delayMessage("bob",
		StopTimeRecord{StopURI: "stop1", Arrival: 86400 + 5*60, Departure: 86400 + 5*60},
		StopTimeRecord{StopURI: "stop2", Arrival: 86400 + 65*60, Departure: 86400 + 65*60},
		StopTimeRecord{StopURI: "stop3", Arrival: 86400 + 125*60, Departure: 86400 + 125*60},
	))

	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1111011", base.VP(ctdf.RTLevelRealTime).String())
	delayed := vjByURI(t, data, "vj:1:modified:0:bob")
	assert.Equal(t, 1, delayed.Shift)
	assert.Equal(t, "0001000", delayed.VP(ctdf.RTLevelRealTime).String())

	mustHandle(t, data, realtimeClosure("stop2_closed", "stop2", at(3, "00:00"), at(3, "08:05")))

	require.Len(t, data.PT.VehicleJourneys, 2)
	assert.Equal(t, "1111011", base.VP(ctdf.RTLevelRealTime).String())

	derived := vjByURI(t, data, "vj:1:RealTime:1:bob:stop2_closed")
	assert.Equal(t, 1, derived.Shift)
	assert.Equal(t, "0000000", derived.VP(ctdf.RTLevelBase).String())
	assert.Equal(t, "0001000", derived.VP(ctdf.RTLevelRealTime).String())
	require.Len(t, derived.StopTimes, 2)
	assert.Equal(t, data.PT.StopPointIdx("stop1"), derived.StopTimes[0].StopPoint)
	assert.Equal(t, 5*60, derived.StopTimes[0].ArrivalTime)
	assert.Equal(t, data.PT.StopPointIdx("stop3"), derived.StopTimes[1].StopPoint)
	assert.Equal(t, 125*60, derived.StopTimes[1].ArrivalTime)

	mustDelete(t, data, "stop2_closed")

	require.Len(t, data.PT.VehicleJourneys, 2)
	assert.Equal(t, "1111011", base.VP(ctdf.RTLevelRealTime).String())
	delayed = vjByURI(t, data, "vj:1:modified:0:bob")
	assert.Equal(t, 1, delayed.Shift)
	assert.Equal(t, "0001000", delayed.VP(ctdf.RTLevelRealTime).String())

	mustDelete(t, data, "bob")

	require.Len(t, data.PT.VehicleJourneys, 1)
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelRealTime).String())
}

func TestRemoveDepartureStopOfDelayedJourney(t *testing.T) {
	b := newBuilder()
	b.VJ("A", "0000100").URI("vj:1").St("stop1", "23:00", "").St("stop2", "24:15", "").St("stop3", "25:00", "").Make()
	data := b.Finish()

	// a full day late, the last stops fall on day 4
	mustHandle(t, data, delayMessage("bob",
		StopTimeRecord{StopURI: "stop1", Arrival: 86400 + 23*3600, Departure: 86400 + 23*3600},
		StopTimeRecord{StopURI: "stop2", Arrival: 2*86400 + 5*60, Departure: 2*86400 + 5*60},
		StopTimeRecord{StopURI: "stop3", Arrival: 2*86400 + 3600, Departure: 2*86400 + 3600},
	))
	require.Len(t, data.PT.VehicleJourneys, 2)

	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "0000000", base.VP(ctdf.RTLevelRealTime).String())
	delayed := vjByURI(t, data, "vj:1:modified:0:bob")
	assert.Equal(t, 1, delayed.Shift)
	assert.Equal(t, "0001000", delayed.VP(ctdf.RTLevelRealTime).String())

	mustHandle(t, data, realtimeClosure("stop1_closed", "stop1", at(3, "22:00"), at(4, "00:00")))

	require.Len(t, data.PT.VehicleJourneys, 2)
	assert.Equal(t, "0000000", base.VP(ctdf.RTLevelRealTime).String())

	derived := vjByURI(t, data, "vj:1:RealTime:1:bob:stop1_closed")
	assert.Equal(t, 2, derived.Shift)
	assert.Equal(t, "0010000", derived.VP(ctdf.RTLevelRealTime).String())
	require.Len(t, derived.StopTimes, 2)
	assert.Equal(t, data.PT.StopPointIdx("stop2"), derived.StopTimes[0].StopPoint)
	assert.Equal(t, 5*60, derived.StopTimes[0].ArrivalTime)
	assert.Equal(t, data.PT.StopPointIdx("stop3"), derived.StopTimes[1].StopPoint)
	assert.Equal(t, 3600, derived.StopTimes[1].ArrivalTime)

	mustDelete(t, data, "stop1_closed")

	require.Len(t, data.PT.VehicleJourneys, 2)
	delayed = vjByURI(t, data, "vj:1:modified:0:bob")
	assert.Equal(t, 1, delayed.Shift)
	assert.Equal(t, "0001000", delayed.VP(ctdf.RTLevelRealTime).String())

	mustDelete(t, data, "bob")

	require.Len(t, data.PT.VehicleJourneys, 1)
	assert.Equal(t, "0000100", base.VP(ctdf.RTLevelBase).String())
	assert.Equal(t, "0000100", base.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "0000100", base.VP(ctdf.RTLevelRealTime).String())
}

func TestLineSectionOnLoopRoute(t *testing.T) {
	b := newBuilder()
	b.VJ("A", "1111111").URI("vj:1").
		St("s1", "08:00", "").St("s2", "08:10", "").St("s3", "08:20", "").
		St("s2", "08:30", "").St("s3", "08:40", "").St("s4", "08:50", "").
		Make()
	b.VJ("A", "1111111").URI("vj:2").Route("A:1").
		St("s1", "09:00", "").St("s3", "09:10", "").St("s2", "09:20", "").St("s4", "09:30", "").
		Make()
	data := b.Finish()

	mustHandle(t, data, newRecord("dis", ctdf.EffectNoService,
		[]PeriodRecord{period(at(2, "00:00"), at(4, "00:00"))},
		lineSectionEntity("A", "s2", "s3"),
	))

	require.Len(t, data.PT.VehicleJourneys, 3)
	vj1 := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1110011", vj1.VP(ctdf.RTLevelAdapted).String())

	// both visits of the loop are cut
	derived := vjByURI(t, data, "vj:1:Adapted:0:dis")
	assert.Equal(t, "0001100", derived.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, derived.StopTimes, 2)
	assert.Equal(t, data.PT.StopPointIdx("s1"), derived.StopTimes[0].StopPoint)
	assert.Equal(t, data.PT.StopPointIdx("s4"), derived.StopTimes[1].StopPoint)

	// s3 is never served after s2
	assert.Equal(t, "1111111", vjByURI(t, data, "vj:2").VP(ctdf.RTLevelAdapted).String())

	pt := data.PT
	assert.Len(t, pt.StopPoints[pt.StopPointIdx("s2")].Impacts, 1)
	assert.Len(t, pt.StopPoints[pt.StopPointIdx("s3")].Impacts, 1)
	assert.Empty(t, pt.StopPoints[pt.StopPointIdx("s4")].Impacts)

	mustDelete(t, data, "dis")

	require.Len(t, pt.VehicleJourneys, 2)
	assert.Equal(t, "1111111", vj1.VP(ctdf.RTLevelAdapted).String())
	assert.Empty(t, pt.StopPoints[pt.StopPointIdx("s2")].Impacts)
}

func TestChainedLineSections(t *testing.T) {
	b := newBuilder()
	b.VJ("A", "1111111").URI("vj:1").
		St("s1", "08:00", "").St("s2", "08:10", "").St("s3", "08:20", "").
		St("s4", "08:30", "").St("s5", "08:40", "").St("s6", "08:50", "").
		Make()
	data := b.Finish()
	pt := data.PT

	mustHandle(t, data, newRecord("ls1", ctdf.EffectNoService,
		[]PeriodRecord{period(at(2, "00:00"), at(4, "00:00"))},
		lineSectionEntity("A", "s2", "s3"),
	))

	base := vjByURI(t, data, "vj:1")
	assert.Equal(t, "1110011", base.VP(ctdf.RTLevelAdapted).String())
	first := vjByURI(t, data, "vj:1:Adapted:0:ls1")
	assert.Equal(t, "0001100", first.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, first.StopTimes, 4)

	mustHandle(t, data, newRecord("ls2", ctdf.EffectNoService,
		[]PeriodRecord{period(at(2, "00:00"), at(5, "00:00"))},
		lineSectionEntity("A", "s4", "s5"),
	))

	require.Len(t, pt.VehicleJourneys, 3)
	assert.Equal(t, "1100011", base.VP(ctdf.RTLevelAdapted).String())
	_, ok := pt.VehicleJourneyByURI("vj:1:Adapted:0:ls1")
	assert.False(t, ok)

	fromBase := vjByURI(t, data, "vj:1:Adapted:1:ls2")
	assert.Equal(t, "0010000", fromBase.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, fromBase.StopTimes, 4)
	assert.Equal(t, pt.StopPointIdx("s3"), fromBase.StopTimes[2].StopPoint)
	assert.Equal(t, pt.StopPointIdx("s6"), fromBase.StopTimes[3].StopPoint)

	chained := vjByURI(t, data, "vj:1:Adapted:0:ls1:Adapted:2:ls2")
	assert.Equal(t, "0001100", chained.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, chained.StopTimes, 2)
	assert.Equal(t, pt.StopPointIdx("s1"), chained.StopTimes[0].StopPoint)
	assert.Equal(t, pt.StopPointIdx("s6"), chained.StopTimes[1].StopPoint)

	mustDelete(t, data, "ls1")

	require.Len(t, pt.VehicleJourneys, 2)
	assert.Equal(t, "1100011", base.VP(ctdf.RTLevelAdapted).String())
	replayed := vjByURI(t, data, "vj:1:Adapted:0:ls2")
	assert.Equal(t, "0011100", replayed.VP(ctdf.RTLevelAdapted).String())
	require.Len(t, replayed.StopTimes, 4)
	assert.Empty(t, pt.StopPoints[pt.StopPointIdx("s2")].Impacts)
	assert.Len(t, pt.StopPoints[pt.StopPointIdx("s4")].Impacts, 1)

	mustDelete(t, data, "ls2")

	require.Len(t, pt.VehicleJourneys, 1)
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelAdapted).String())
	assert.Equal(t, "1111111", base.VP(ctdf.RTLevelRealTime).String())
	assert.Empty(t, mvjByURI(t, data, "vj:1").ModifiedBy.Live(pt.Disruptions))
	for _, sp := range pt.StopPoints {
		assert.Empty(t, sp.Impacts, sp.URI)
	}
}
