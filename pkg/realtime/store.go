package realtime

import (
	"context"
	"sync"

	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/database"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/slices"
)

// Store persists the records applied to the live snapshot so that a
// restarted engine can rebuild it.
type Store interface {
	UpsertDisruption(ctx context.Context, record *disruptions.DisruptionRecord) error
	// DeleteDisruption forgets the record with id, whether it was stored as a
	// disruption or as a trip update.
	DeleteDisruption(ctx context.Context, id string) error
	UpsertTripUpdate(ctx context.Context, record *disruptions.TripUpdateRecord) error

	// Backlog returns every stored record as an event, oldest update first.
	Backlog(ctx context.Context) ([]*ctdf.Event, error)
}

func backlogEvents(disruptionRecords []*disruptions.DisruptionRecord, tripUpdates []*disruptions.TripUpdateRecord) ([]*ctdf.Event, error) {
	events := make([]*ctdf.Event, 0, len(disruptionRecords)+len(tripUpdates))

	for _, record := range disruptionRecords {
		event, err := ctdf.NewEvent(ctdf.EventTypeDisruptionUpserted, record)
		if err != nil {
			return nil, err
		}
		event.ID = record.ID
		event.Timestamp = record.UpdatedAt
		events = append(events, event)
	}
	for _, record := range tripUpdates {
		event, err := ctdf.NewEvent(ctdf.EventTypeTripUpdated, record)
		if err != nil {
			return nil, err
		}
		event.ID = record.ID
		event.Timestamp = record.UpdatedAt
		events = append(events, event)
	}

	slices.SortStableFunc(events, func(a, b *ctdf.Event) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	return events, nil
}

type MemoryStore struct {
	mutex       sync.Mutex
	disruptions map[string]*disruptions.DisruptionRecord
	tripUpdates map[string]*disruptions.TripUpdateRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		disruptions: map[string]*disruptions.DisruptionRecord{},
		tripUpdates: map[string]*disruptions.TripUpdateRecord{},
	}
}

func (s *MemoryStore) UpsertDisruption(_ context.Context, record *disruptions.DisruptionRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.disruptions[record.ID] = record
	return nil
}

func (s *MemoryStore) DeleteDisruption(_ context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.disruptions, id)
	delete(s.tripUpdates, id)
	return nil
}

func (s *MemoryStore) UpsertTripUpdate(_ context.Context, record *disruptions.TripUpdateRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tripUpdates[record.ID] = record
	return nil
}

func (s *MemoryStore) Backlog(context.Context) ([]*ctdf.Event, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var disruptionRecords []*disruptions.DisruptionRecord
	for _, record := range s.disruptions {
		disruptionRecords = append(disruptionRecords, record)
	}
	var tripUpdates []*disruptions.TripUpdateRecord
	for _, record := range s.tripUpdates {
		tripUpdates = append(tripUpdates, record)
	}

	return backlogEvents(disruptionRecords, tripUpdates)
}

// MongoStore keeps records in the disruptions and trip_updates collections.
type MongoStore struct{}

func (MongoStore) UpsertDisruption(ctx context.Context, record *disruptions.DisruptionRecord) error {
	collection := database.GetCollection(database.DisruptionsCollection)
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, options.Replace().SetUpsert(true))
	return err
}

func (MongoStore) DeleteDisruption(ctx context.Context, id string) error {
	for _, name := range []string{database.DisruptionsCollection, database.TripUpdatesCollection} {
		if _, err := database.GetCollection(name).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			return err
		}
	}
	return nil
}

func (MongoStore) UpsertTripUpdate(ctx context.Context, record *disruptions.TripUpdateRecord) error {
	collection := database.GetCollection(database.TripUpdatesCollection)
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, options.Replace().SetUpsert(true))
	return err
}

func (MongoStore) Backlog(ctx context.Context) ([]*ctdf.Event, error) {
	sort := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}, {Key: "_id", Value: 1}})

	var disruptionRecords []*disruptions.DisruptionRecord
	cursor, err := database.GetCollection(database.DisruptionsCollection).Find(ctx, bson.M{}, sort)
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &disruptionRecords); err != nil {
		return nil, err
	}

	var tripUpdates []*disruptions.TripUpdateRecord
	cursor, err = database.GetCollection(database.TripUpdatesCollection).Find(ctx, bson.M{}, sort)
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &tripUpdates); err != nil {
		return nil, err
	}

	return backlogEvents(disruptionRecords, tripUpdates)
}
