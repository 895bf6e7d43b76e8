package manager

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
)

type recordingPublisher struct {
	mutex     sync.Mutex
	versions  map[string]string
	events    []ctdf.EventType
	retracted []string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{versions: map[string]string{}}
}

func (p *recordingPublisher) PublishIfChanged(_ context.Context, key string, version string, eventType ctdf.EventType, _ any) (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.versions[key] == version {
		return false, nil
	}
	p.versions[key] = version
	p.events = append(p.events, eventType)
	return true, nil
}

func (p *recordingPublisher) Retract(_ context.Context, id string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	delete(p.versions, id)
	p.retracted = append(p.retracted, id)
	return nil
}

func (p *recordingPublisher) published() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return len(p.events)
}

const twoDisruptions = `
disruptions:
  - id: a
    impacts: []
  - id: b
    impacts: []
trip_updates:
  - id: tu
    vehicle_journey_uri: vj:1
    reference_date: "20120614"
    cancelled: true
`

const oneDisruption = `
disruptions:
  - id: a
    impacts: []
`

func testManager(publisher *recordingPublisher) *Manager {
	m := New(publisher)
	m.InitialInterval = time.Millisecond
	return m
}

func TestImportRealtime(t *testing.T) {
	var document atomic.Value
	document.Store(twoDisruptions)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "secret" || r.Header.Get("X-Api-Version") != "2" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(document.Load().(string)))
	}))
	defer server.Close()

	dataset := datasets.DataSet{
		Identifier: "manual",
		Format:     datasets.DataSetFormatDisruptionFile,
		Source:     server.URL + "/disruptions.yaml",
	}
	dataset.SourceAuthentication.Query = map[string]string{"key": "secret"}
	dataset.SourceAuthentication.Header = map[string]string{"X-Api-Version": "2"}

	publisher := newRecordingPublisher()
	m := testManager(publisher)
	ctx := context.Background()

	result, err := m.ImportRealtime(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Published)
	assert.Equal(t, []ctdf.EventType{ctdf.EventTypeDisruptionUpserted, ctdf.EventTypeDisruptionUpserted, ctdf.EventTypeTripUpdated}, publisher.events)

	result, err = m.ImportRealtime(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Published)
	assert.Equal(t, 3, result.Unchanged)

	document.Store(oneDisruption)
	result, err = m.ImportRealtime(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unchanged)
	assert.Equal(t, 1, result.Retracted)
	assert.Equal(t, []string{"b"}, publisher.retracted)
}

func TestOpenRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		username, password, ok := r.BasicAuth()
		if !ok || username != "user" || password != "pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(oneDisruption))
	}))
	defer server.Close()

	dataset := datasets.DataSet{Identifier: "manual", Format: datasets.DataSetFormatDisruptionFile, Source: server.URL}
	dataset.SourceAuthentication.Basic.Username = "user"
	dataset.SourceAuthentication.Basic.Password = "pass"

	result, err := testManager(newRecordingPublisher()).ImportRealtime(context.Background(), dataset)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestOpenDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dataset := datasets.DataSet{Identifier: "missing", Format: datasets.DataSetFormatDisruptionFile, Source: server.URL}
	m := testManager(newRecordingPublisher())

	_, err := m.Open(context.Background(), dataset)
	var sourceError *SourceError
	require.ErrorAs(t, err, &sourceError)
	assert.Equal(t, http.StatusNotFound, sourceError.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())

	for i := 0; i < 3; i++ {
		_, err = m.ImportProtected(context.Background(), dataset)
		require.Error(t, err)
	}
	_, err = m.ImportProtected(context.Background(), dataset)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(4), attempts.Load())
}

func TestImportRejectsUnknownFormats(t *testing.T) {
	m := testManager(newRecordingPublisher())

	_, err := m.ImportRealtime(context.Background(), datasets.DataSet{Format: datasets.DataSetFormatGTFSSchedule})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = m.ImportSchedule(context.Background(), datasets.DataSet{Format: datasets.DataSetFormatSiriSX}, ctdf.DatePeriod{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPoll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(oneDisruption))
	}))
	defer server.Close()

	publisher := newRecordingPublisher()
	m := testManager(publisher)

	registered := []datasets.DataSet{
		{Identifier: "manual", Format: datasets.DataSetFormatDisruptionFile, Source: server.URL, RefreshInterval: 10 * time.Millisecond},
		{Identifier: "schedule", Format: datasets.DataSetFormatGTFSSchedule, Source: server.URL},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Poll(ctx, registered)
	}()

	assert.Eventually(t, func() bool { return publisher.published() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func writeSchedule(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gtfs.zip")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := zip.NewWriter(file)
	files := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\nA1,City Transit,https://example.com,Europe/London\n",
		"stops.txt":  "stop_id,stop_name\ns1,Central\ns2,Market\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_type\nR1,A1,1,3\n",
		"trips.txt":  "route_id,service_id,trip_id\nR1,daily,t1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"t1,08:00:00,08:00:00,s1,1\nt1,08:10:00,08:10:00,s2,2\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"daily,1,1,1,1,1,1,1,20120601,20120630\n",
	}
	for name, content := range files {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return path
}

func TestImportSchedule(t *testing.T) {
	dataset := datasets.DataSet{
		Identifier: "schedule",
		Format:     datasets.DataSetFormatGTFSSchedule,
		Source:     writeSchedule(t),
	}
	production := ctdf.NewDatePeriod(time.Date(2012, time.June, 14, 0, 0, 0, 0, time.UTC), 7)

	m := testManager(newRecordingPublisher())
	data, err := m.ImportSchedule(context.Background(), dataset, production)
	require.NoError(t, err)

	assert.Len(t, data.Meta.DatasetVersion, 64)
	assert.Equal(t, 1, data.PT.CountVehicleJourneys(ctdf.RTLevelBase))

	again, err := m.ImportSchedule(context.Background(), dataset, production)
	require.NoError(t, err)
	assert.Equal(t, data.Meta.DatasetVersion, again.Meta.DatasetVersion)
}
