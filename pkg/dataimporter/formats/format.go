package formats

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
)

// ScheduleFormat builds the base schedule.
type ScheduleFormat interface {
	ParseFile(io.Reader) error
	Build(ctdf.DatePeriod) (*ctdf.Data, error)
}

// RealtimeFormat turns a fetched feed into records for the realtime queue.
type RealtimeFormat interface {
	ParseFile(io.Reader) error
	Convert(datasets.DataSet) (*Feed, error)
}

// Publisher enqueues converted records on the realtime queue.
type Publisher interface {
	PublishIfChanged(ctx context.Context, key string, version string, eventType ctdf.EventType, body any) (bool, error)
	Retract(ctx context.Context, id string) error
}

// Feed holds the records produced from one fetch. Versions maps each record
// id to a fingerprint of its source so unchanged entities are skipped.
type Feed struct {
	Disruptions []*disruptions.DisruptionRecord
	TripUpdates []*disruptions.TripUpdateRecord
	Versions    map[string]string
}

func NewFeed() *Feed {
	return &Feed{Versions: map[string]string{}}
}

func (f *Feed) AddDisruption(record *disruptions.DisruptionRecord, version string) {
	f.Disruptions = append(f.Disruptions, record)
	f.Versions[record.ID] = version
}

func (f *Feed) AddTripUpdate(record *disruptions.TripUpdateRecord, version string) {
	f.TripUpdates = append(f.TripUpdates, record)
	f.Versions[record.ID] = version
}

// Fingerprint hashes the JSON form of value.
func Fingerprint(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}

	return HashBytes(encoded)
}

func HashBytes(body []byte) string {
	hash := sha256.Sum256(body)
	return fmt.Sprintf("%x", hash)
}

// PublicationPeriod spans every period; it stays open if one does.
func PublicationPeriod(periods []disruptions.PeriodRecord) disruptions.PeriodRecord {
	if len(periods) == 0 {
		return disruptions.PeriodRecord{}
	}

	publication := disruptions.PeriodRecord{Start: periods[0].Start}
	open := false
	for _, period := range periods {
		if period.Start.Before(publication.Start) {
			publication.Start = period.Start
		}
		if period.End == nil {
			open = true
			continue
		}
		if publication.End == nil || period.End.After(*publication.End) {
			end := *period.End
			publication.End = &end
		}
	}
	if open {
		publication.End = nil
	}

	return publication
}
