package disruptionfile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
)

const yamlDocument = `
disruptions:
  - id: works
    rt_level: Adapted
    publication_period:
      start: 2012-06-14T00:00:00Z
      end: 2012-06-21T00:00:00Z
    impacts:
      - id: works:1
        severity:
          id: blocking
          effect: NO_SERVICE
        application_periods:
          - start: 2012-06-15T00:00:00Z
            end: 2012-06-16T00:00:00Z
        informed_entities:
          - kind: line
            uri: A
trip_updates:
  - id: late
    contributor: operator
    vehicle_journey_uri: vj:1
    reference_date: "20120616"
    cancelled: true
`

const jsonDocument = `{"disruptions": [{"id": "json", "contributor": "desk", "impacts": []}]}`

func TestConvertYAML(t *testing.T) {
	file := &DisruptionFile{}
	require.NoError(t, file.ParseFile(strings.NewReader(yamlDocument)))

	feed, err := file.Convert(datasets.DataSet{Identifier: "manual"})
	require.NoError(t, err)

	require.Len(t, feed.Disruptions, 1)
	record := feed.Disruptions[0]
	assert.Equal(t, "manual", record.Contributor)
	assert.Equal(t, time.Date(2012, time.June, 14, 0, 0, 0, 0, time.UTC), record.PublicationPeriod.Start)
	require.Len(t, record.Impacts, 1)
	assert.Equal(t, "NO_SERVICE", record.Impacts[0].Severity.Effect)
	assert.Equal(t, "A", record.Impacts[0].InformedEntities[0].URI)

	require.Len(t, feed.TripUpdates, 1)
	assert.Equal(t, "operator", feed.TripUpdates[0].Contributor)
	assert.True(t, feed.TripUpdates[0].Cancelled)
	assert.Equal(t, "20120616", feed.TripUpdates[0].ReferenceDate)

	assert.Len(t, feed.Versions, 2)
	assert.NotEmpty(t, feed.Versions["works"])
}

func TestReadJSON(t *testing.T) {
	document, err := Read(strings.NewReader(jsonDocument))
	require.NoError(t, err)
	require.Len(t, document.Disruptions, 1)
	assert.Equal(t, "desk", document.Disruptions[0].Contributor)

	document, err = Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, document.Disruptions)

	_, err = Read(strings.NewReader("disruptions: {"))
	assert.Error(t, err)
}
