package disruptions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/travigo/disruptions/pkg/ctdf"
)

var productionBegin = time.Date(2012, time.June, 14, 0, 0, 0, 0, time.UTC)

const productionDays = 7

func newBuilder() *ctdf.Builder {
	return ctdf.NewBuilder(productionBegin, productionDays)
}

// at is the instant clock on production day.
func at(day int, clock string) time.Time {
	seconds, err := ctdf.ParseClock(clock)
	if err != nil {
		panic(err)
	}
	return productionBegin.AddDate(0, 0, day).Add(time.Duration(seconds) * time.Second)
}

func period(begin, end time.Time) PeriodRecord {
	return PeriodRecord{Start: begin, End: &end}
}

func entity(kind, uri string) EntityRecord {
	return EntityRecord{Kind: kind, URI: uri}
}

func newRecord(id string, effect ctdf.Effect, periods []PeriodRecord, entities ...EntityRecord) *DisruptionRecord {
	return &DisruptionRecord{
		ID:                id,
		RTLevel:           "Adapted",
		PublicationPeriod: period(productionBegin, productionBegin.AddDate(0, 0, productionDays)),
		Impacts: []ImpactRecord{{
			ID:                 id + ":impact",
			Severity:           SeverityRecord{ID: "severity:" + string(effect), Effect: string(effect)},
			ApplicationPeriods: periods,
			InformedEntities:   entities,
		}},
	}
}

func mustHandle(t *testing.T, data *ctdf.Data, record *DisruptionRecord) {
	t.Helper()

	applied, err := HandleDisruption(data, record, nil)
	require.NoError(t, err)
	require.True(t, applied)
}

func mustDelete(t *testing.T, data *ctdf.Data, id string) {
	t.Helper()

	existed, err := HandleDelete(data, id)
	require.NoError(t, err)
	require.True(t, existed)
}

func vjByURI(t *testing.T, data *ctdf.Data, uri string) *ctdf.VehicleJourney {
	t.Helper()

	vj, ok := data.PT.VehicleJourneyByURI(uri)
	require.True(t, ok, "vehicle journey %s not found", uri)
	return vj
}

func mvjByURI(t *testing.T, data *ctdf.Data, uri string) *ctdf.MetaVehicleJourney {
	t.Helper()

	mvj, ok := data.PT.MetaVJByURI(uri)
	require.True(t, ok, "meta vehicle journey %s not found", uri)
	return mvj
}
