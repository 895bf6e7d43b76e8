package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
	"github.com/travigo/disruptions/pkg/dataimporter/formats"
	"github.com/travigo/disruptions/pkg/dataimporter/formats/disruptionfile"
	"github.com/travigo/disruptions/pkg/dataimporter/formats/gtfs"
	"github.com/travigo/disruptions/pkg/dataimporter/formats/siri_sx"
)

var ErrUnsupportedFormat = errors.New("unrecognised format")

// Manager fetches datasets and hands realtime records to the publisher.
type Manager struct {
	HTTPClient      *http.Client
	Publisher       formats.Publisher
	MaxRetries      uint64
	InitialInterval time.Duration

	// BreakerTimeout is how long a failing dataset is left alone.
	BreakerTimeout time.Duration

	mutex    sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*ImportResult]
	live     map[string]map[string]bool
}

func New(publisher formats.Publisher) *Manager {
	return &Manager{
		HTTPClient:      &http.Client{Timeout: 30 * time.Second},
		Publisher:       publisher,
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		BreakerTimeout:  5 * time.Minute,
		breakers:        map[string]*gobreaker.CircuitBreaker[*ImportResult]{},
		live:            map[string]map[string]bool{},
	}
}

type ImportResult struct {
	Dataset   string
	Published int
	Unchanged int
	Retracted int
}

// ImportSchedule downloads and builds a GTFS schedule for production.
func (m *Manager) ImportSchedule(ctx context.Context, dataset datasets.DataSet, production ctdf.DatePeriod) (*ctdf.Data, error) {
	if dataset.Format != datasets.DataSetFormatGTFSSchedule {
		return nil, fmt.Errorf("%w %s for a schedule", ErrUnsupportedFormat, dataset.Format)
	}

	reader, err := m.Open(ctx, dataset)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var format formats.ScheduleFormat = &gtfs.Schedule{}
	if err := format.ParseFile(bytes.NewReader(body)); err != nil {
		return nil, err
	}

	data, err := format.Build(production)
	if err != nil {
		return nil, err
	}
	data.Meta.DatasetVersion = formats.HashBytes(body)

	return data, nil
}

func realtimeFormat(format datasets.DataSetFormat) (formats.RealtimeFormat, error) {
	switch format {
	case datasets.DataSetFormatGTFSRealtime:
		return &gtfs.Realtime{}, nil
	case datasets.DataSetFormatSiriSX:
		return &siri_sx.SiriSX{}, nil
	case datasets.DataSetFormatDisruptionFile:
		return &disruptionfile.DisruptionFile{}, nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnsupportedFormat, format)
	}
}

// ImportRealtime fetches one realtime dataset and publishes every record
// whose source changed since it was last published. Disruptions that were
// in the previous fetch but are gone from this one are retracted.
func (m *Manager) ImportRealtime(ctx context.Context, dataset datasets.DataSet) (*ImportResult, error) {
	format, err := realtimeFormat(dataset.Format)
	if err != nil {
		return nil, err
	}

	reader, err := m.Open(ctx, dataset)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if err := format.ParseFile(reader); err != nil {
		return nil, err
	}
	feed, err := format.Convert(dataset)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Dataset: dataset.Identifier}
	var errs []error

	present := map[string]bool{}
	for _, record := range feed.Disruptions {
		present[record.ID] = true
		errs = append(errs, m.publish(ctx, result, record.ID, feed.Versions[record.ID], ctdf.EventTypeDisruptionUpserted, record))
	}
	for _, record := range feed.TripUpdates {
		errs = append(errs, m.publish(ctx, result, record.ID, feed.Versions[record.ID], ctdf.EventTypeTripUpdated, record))
	}

	m.mutex.Lock()
	previous := m.live[dataset.Identifier]
	m.live[dataset.Identifier] = present
	m.mutex.Unlock()

	for id := range previous {
		if present[id] {
			continue
		}
		if err := m.Publisher.Retract(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		result.Retracted++
	}

	log.Info().
		Str("dataset", dataset.Identifier).
		Int("published", result.Published).
		Int("unchanged", result.Unchanged).
		Int("retracted", result.Retracted).
		Msg("Imported realtime dataset")

	return result, errors.Join(errs...)
}

func (m *Manager) publish(ctx context.Context, result *ImportResult, id string, version string, eventType ctdf.EventType, body any) error {
	published, err := m.Publisher.PublishIfChanged(ctx, id, version, eventType, body)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", id, err)
	}

	if published {
		result.Published++
	} else {
		result.Unchanged++
	}

	return nil
}

func (m *Manager) breaker(dataset datasets.DataSet) *gobreaker.CircuitBreaker[*ImportResult] {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if breaker, exists := m.breakers[dataset.Identifier]; exists {
		return breaker
	}

	breaker := gobreaker.NewCircuitBreaker[*ImportResult](gobreaker.Settings{
		Name:        dataset.Identifier,
		MaxRequests: 1,
		Timeout:     m.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("dataset", name).Str("from", from.String()).Str("to", to.String()).Msg("Dataset circuit breaker changed state")
		},
	})
	m.breakers[dataset.Identifier] = breaker

	return breaker
}

// ImportProtected runs ImportRealtime behind the dataset's circuit breaker.
func (m *Manager) ImportProtected(ctx context.Context, dataset datasets.DataSet) (*ImportResult, error) {
	return m.breaker(dataset).Execute(func() (*ImportResult, error) {
		return m.ImportRealtime(ctx, dataset)
	})
}
