package gtfs

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/disruptions/pkg/ctdf"
)

var productionBegin = time.Date(2012, time.June, 14, 0, 0, 0, 0, time.UTC)

func feedArchive(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()

	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for name, content := range files {
		file, err := writer.Create(name)
		require.NoError(t, err)
		_, err = file.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return &buffer
}

func testFeed(t *testing.T) *bytes.Buffer {
	return feedArchive(t, map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"A1,City Transit,https://example.com,Europe/London\n",
		"stops.txt": "stop_id,stop_name,location_type,parent_station\n" +
			"S,Central,1,\n" +
			"s1,Central Platform 1,0,S\n" +
			"s2,Market,0,\n" +
			"s3,Harbour,,\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
			"R1,A1,1,Main,3\n",
		"trips.txt": "route_id,service_id,trip_id,trip_headsign,block_id,wheelchair_accessible,direction_id\n" +
			"R1,weekday,t2,Central,b1,0,1\n" +
			"R1,weekday,t1,Harbour,b1,1,0\n" +
			"R1,extra,t3,Market,,0,0\n" +
			"R9,weekday,t4,Nowhere,,0,0\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type,drop_off_type\n" +
			"t1,08:10:00,08:11:00,s2,2,0,0\n" +
			"t1,08:00:00,08:00:00,s1,1,0,0\n" +
			"t1,08:20:00,08:20:00,s3,3,1,0\n" +
			"t2,09:00:00,09:00:00,s3,1,0,0\n" +
			"t2,09:30:00,09:30:00,s1,2,0,0\n" +
			"t3,25:00:00,25:00:00,s1,1,0,0\n" +
			"t3,25:10:00,25:10:00,s2,2,0,0\n" +
			"t4,10:00:00,10:00:00,s1,1,0,0\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"weekday,1,1,1,1,1,0,0,20120601,20120630\n",
		"calendar_dates.txt": "service_id,date,exception_type\n" +
			"weekday,20120615,2\n" +
			"extra,20120616,1\n",
		"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n",
	})
}

func buildTestFeed(t *testing.T) *ctdf.Data {
	t.Helper()

	schedule := &Schedule{}
	require.NoError(t, schedule.ParseFile(testFeed(t)))

	data, err := schedule.Build(ctdf.NewDatePeriod(productionBegin, 7))
	require.NoError(t, err)
	return data
}

func TestScheduleBuild(t *testing.T) {
	data := buildTestFeed(t)
	pt := data.PT

	require.Len(t, pt.VehicleJourneys, 3)
	_, exists := pt.VehicleJourneyByURI("t4")
	assert.False(t, exists)

	t1, exists := pt.VehicleJourneyByURI("t1")
	require.True(t, exists)
	t2, _ := pt.VehicleJourneyByURI("t2")
	t3, _ := pt.VehicleJourneyByURI("t3")

	assert.Equal(t, "1110001", t1.VP(ctdf.RTLevelBase).String())
	assert.Equal(t, "1110001", t1.VP(ctdf.RTLevelRealTime).String())
	assert.Equal(t, "0000100", t3.VP(ctdf.RTLevelBase).String())

	assert.Equal(t, pt.RouteIdx("R1:0"), t1.Route)
	assert.Equal(t, pt.RouteIdx("R1:1"), t2.Route)

	line := pt.Lines[pt.LineIdx("R1")]
	assert.Equal(t, "Main", line.Name)
	assert.Equal(t, "1", line.Code)
	assert.Equal(t, pt.NetworkIdx("A1"), line.Network)
	assert.Equal(t, "City Transit", pt.Networks[line.Network].Name)
	assert.Equal(t, pt.CompanyIdx("A1"), t1.Company)
	assert.Equal(t, pt.PhysicalModeIdx("Bus"), t1.PhysicalMode)

	assert.Equal(t, "Harbour", t1.Attributes.Headsign)
	assert.True(t, t1.Attributes.WheelchairAccessible)
	assert.False(t, t2.Attributes.WheelchairAccessible)
}

func TestScheduleStopTimes(t *testing.T) {
	data := buildTestFeed(t)
	pt := data.PT

	t1, _ := pt.VehicleJourneyByURI("t1")
	require.Len(t, t1.StopTimes, 3)
	assert.Equal(t, pt.StopPointIdx("s1"), t1.StopTimes[0].StopPoint)
	assert.Equal(t, pt.StopPointIdx("s2"), t1.StopTimes[1].StopPoint)
	assert.Equal(t, 8*3600+10*60, t1.StopTimes[1].ArrivalTime)
	assert.Equal(t, 8*3600+11*60, t1.StopTimes[1].DepartureTime)

	assert.False(t, t1.StopTimes[2].PickUpAllowed)
	assert.True(t, t1.StopTimes[2].DropOffAllowed)
	assert.True(t, t1.StopTimes[0].PickUpAllowed)

	platform := pt.StopPoints[pt.StopPointIdx("s1")]
	assert.Equal(t, "Central Platform 1", platform.Name)
	assert.Equal(t, pt.StopAreaIdx("S"), platform.StopArea)
	assert.Equal(t, "Central", pt.StopAreas[platform.StopArea].Name)

	market := pt.StopPoints[pt.StopPointIdx("s2")]
	assert.Equal(t, pt.StopAreaIdx("s2"), market.StopArea)
}

func TestScheduleBlocks(t *testing.T) {
	data := buildTestFeed(t)

	t1, _ := data.PT.VehicleJourneyByURI("t1")
	t2, _ := data.PT.VehicleJourneyByURI("t2")
	t3, _ := data.PT.VehicleJourneyByURI("t3")

	assert.Equal(t, t2.Handle, t1.NextVJ)
	assert.Equal(t, t1.Handle, t2.PrevVJ)
	assert.Equal(t, ctdf.Handle{}, t3.NextVJ)
}

func TestScheduleRejectsInvalidArchive(t *testing.T) {
	schedule := &Schedule{}
	assert.Error(t, schedule.ParseFile(bytes.NewBufferString("not a zip")))
}
